// Package catalog submits finished dataset documents to the open-data
// catalog's input API.
package catalog
