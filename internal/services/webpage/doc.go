// Package webpage scrapes API landing pages for descriptive content,
// document links and contact hints.
package webpage
