// Package language normalizes user-supplied language hints for the engine.
//
// Receivers pick a language by name ("German"), by ISO 639 code ("de",
// "deu", "ger") or by BCP 47 tag ("de-AT"). WhisperX only understands ISO
// 639-1 codes, so everything funnels through ToISO2 before it reaches the
// command line.
package language
