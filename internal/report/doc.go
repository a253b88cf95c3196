// Package report renders scan reports and scan comparisons.
//
// SimpleWriter prints a plain-text table for the terminal, JSONWriter emits
// machine-readable JSON and MarkdownWriter produces GitHub-flavored Markdown
// with a mermaid chart of port states. All of them implement Writer.
package report
