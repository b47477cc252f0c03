// Package textgen drafts catalog metadata (title, description, keywords,
// theme codes) from harvested API material via a chat-completions API.
package textgen
