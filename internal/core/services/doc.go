// Package services implements the driving port interfaces.
// Services contain the core retrieval and ingestion logic and
// orchestrate calls to driven ports (adapters).
//
// Ranking math, chunking and tokenization live in their own packages;
// services wire them to the stores and gateways.
package services
