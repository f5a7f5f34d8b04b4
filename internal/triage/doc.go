// Package triage provides the business boundary for Concierge's inquiry
// triage pipeline. It defines the Service (dedup, classification, policy,
// reply dispatch, logging), the confidence policy (ComputeConfidence,
// DecideAction), and domain models.
package triage
