// Package formdef defines the declarative form-definition grammar and
// turns raw authored documents into validated, default-filled
// definitions ready for compilation. Validation collects every grammar
// violation it finds into a single error so authors fix a broken
// definition in one pass.
package formdef
