// Package llm talks to OpenAI-compatible chat-completion providers.
//
// # Overview
//
// The package has two halves. The [Gateway] knows how to format a request for
// a configured provider and how to classify the answer; the [StreamDecoder]
// turns a streamed response body into text increments. Failover between
// providers is not done here: the gateway makes exactly one attempt per call
// and the conversation session decides what to try next.
//
//	┌──────────────┐   Send    ┌──────────────┐
//	│   session    │ ────────▶ │   Gateway    │ ──▶ POST endpoint
//	│              │           └──────────────┘
//	│              │  Decode   ┌──────────────┐
//	│              │ ────────▶ │ StreamDecoder│ ──▶ onIncrement(fragment, text)
//	└──────────────┘           └──────────────┘
//
// # Providers
//
// Providers are built from configuration in priority order:
//
//	providers, err := llm.NewProviders(cfg)
//	if err != nil {
//	    return err
//	}
//
// Each [ProviderConfig] carries its endpoint, bearer token and request shape.
// The model field is only sent when RequireModel is set, since some providers
// bind the model to the token and reject an explicit one.
//
// # Sending
//
//	gw, _ := llm.NewGateway(nil, logger)
//	resp, err := gw.Send(ctx, providers[0], messages, true)
//	if err != nil {
//	    var pe *llm.ProviderError
//	    if errors.As(err, &pe) && pe.StatusCode == http.StatusUnauthorized {
//	        // bad token
//	    }
//	    return err
//	}
//	text, err := llm.NewStreamDecoder(logger).Decode(providers[0].ID, resp.Body,
//	    func(fragment, accumulated string) {
//	        fmt.Print(fragment)
//	    })
//
// For non-streaming requests pass the body to [DecodeCompletion] instead.
//
// # Stream framing
//
// Providers disagree on framing. Some write one bare JSON object per line,
// others use server-sent events:
//
//	{"choices":[{"delta":{"content":"Hi"}}]}
//	data: {"choices":[{"delta":{"content":" there"}}]}
//	data: [DONE]
//
// The decoder accepts both, in any mix. Lines that are neither are skipped,
// since providers interleave keep-alives and comments.
//
// # Errors
//
//   - [*ProviderError]: non-200 status (StatusCode set) or transport failure
//     (StatusCode zero, Err set)
//   - [*StreamDecodeError]: the body of a 200 response could not be read or parsed
//   - [ErrInvalidResponse]: a health probe got 200 without a usable choices array
//   - [ErrModelNotFound]: an ollama provider does not have the model pulled
package llm
