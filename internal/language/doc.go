// Package language normalizes BCP 47 language tags for job targets and
// maps them to the forms individual capabilities expect: ISO 639-1 for
// WhisperX, full tags for Text-to-Speech voices, and English names for
// translation prompts.
package language
