// Package extractor turns printer manual PDFs into classified sections.
//
// Pages are read with a PageReader, split into chunks of roughly 600
// characters by greedy line accumulation, cleaned, classified into a
// closed set of section types and tagged with canonical keywords. The
// classification, keyword and feature vocabularies are data (rules.toml)
// and can be extended with a user rules file.
//
// Extraction is deterministic: the same pages always produce the same
// sections with the same IDs in the same order.
package extractor
