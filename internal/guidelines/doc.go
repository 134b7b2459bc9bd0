// Package guidelines looks up clinical practice guideline references by
// topic.
//
// Two searchers exist: StaticSearcher over a list fixed at startup (by
// default the embedded default_guidelines.json) and StoreSearcher over the
// guidelines table that the importer fills.
package guidelines
