// Package prompts provides prompt templates for language models with
// per-model special tokens and per-model template variants.
//
// Template text is written indented inside Go source and normalized before
// rendering: the common indentation is removed, runs of spaces after a word
// collapse to one, and a line ending in a backslash continues on the next.
// Rendering uses a Jinja-like syntax:
//
//	{{ bos }}Tell me about {{ topic }}.
//	{% for e in examples %}
//	Example: {{ e }}
//	{% endfor %}
//
// # Basic Usage
//
// Declare a template with its parameters and call it:
//
//	tmpl := prompts.MustTemplate("summarize", `
//	    Summarize the following text in {{ words }} words:
//	    {{ text }}
//	`, []prompts.Param{prompts.Required("text"), prompts.Optional("words", 50)})
//
//	out, err := tmpl.Call(ctx, article)
//	out, err = tmpl.Call(ctx, article, prompts.Kw("words", 20))
//
// Missing required arguments fail with a signature mismatch; variables the
// body uses but nobody supplied fail with a missing variable error.
//
// # Special Tokens
//
// Every render exposes the special tokens of the target model as the
// globals bos, eos, user, assistant, system and special:
//
//	out, err := prompts.Render(ctx, "{{ bos }}{{ user.begin }}Hi{{ user.end }}", prompts.ModelMistral7BInstruct, nil)
//
// Unknown models render with empty tokens and log a warning.
//
// # Model Variants
//
// A template can carry a different body per model. Index selects the
// variant, or binds the template itself to the model when none exists:
//
//	tmpl.Register("google/gemma-2-9b-it", gemmaBody, params)
//	out, err := tmpl.Index("google/gemma-2-9b-it").Call(ctx, article)
//
// For, WithModel and Registered do the same lookups without binding the
// receiver.
//
// # Storage
//
// Templates can be declared as YAML definitions and kept in a Store
// (memory, filesystem or postgres). A Library builds templates from a
// store and caches them:
//
//	store, _ := prompts.OpenStore("filesystem", "./prompts")
//	lib := prompts.NewLibrary(store)
//	out, err := lib.Render(ctx, "summarize", model, map[string]any{"text": article})
package prompts
