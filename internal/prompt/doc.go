// Package prompt builds the message list sent to chat providers for the
// advisor persona.
//
// # Overview
//
// Callers describe one turn with [BuildOptions] and call [Build] to receive
// a []llm.Message slice ready for the gateway:
//
//	system   persona, answer language and answer style
//	history  prior user/assistant turns, as supplied by the caller
//	user     the new question, plus an optional "Context:" section
//
// # Language
//
// The answer language is a BCP 47 tag parsed with [ParseLanguage]. The
// system prompt names it in English and in the language itself, so
// "zh-CN" becomes "Chinese (中文)". Unset tags use [DefaultLanguage].
//
// # Basic usage
//
//	lang, err := prompt.ParseLanguage("en")
//	if err != nil {
//	    return err
//	}
//	messages, err := prompt.Build(prompt.BuildOptions{
//	    Language:  lang,
//	    Verbosity: prompt.VerbosityConcise,
//	    History:   window,
//	    Question:  "Which UK universities are strong in chemistry?",
//	})
package prompt
