// Package services implements the driving port interfaces.
//
// CorpusService is the only writer of the chunk store and notifies the
// IndexMaintainer synchronously. ResolutionService and RetrievalService
// implement the two query stages: resolve-keywords finds topics and
// get-docs returns their content.
package services
