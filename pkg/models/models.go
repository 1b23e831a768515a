// Package models defines the JSON documents exchanged by the fibqpe CLI and
// HTTP API. They are plain data: every field is filled by the producer and
// nothing here depends on the simulation packages.
package models

import "time"

// PhaseRow is one distinct measured bitstring of the counting register.
type PhaseRow struct {
	Bitstring string  `json:"bitstring"`
	Value     uint64  `json:"value"`
	Phase     float64 `json:"phase"`
	Fraction  string  `json:"fraction"`
	Period    int     `json:"period"`
	Count     int     `json:"count"`
}

// PeriodCheck is the classical verdict on one candidate period.
type PeriodCheck struct {
	Period int `json:"period"`
	Count  int `json:"count"`
	// Holds reports F(k+r) ≡ F(k) (mod N) for some k in the window.
	Holds    bool `json:"holds"`
	WitnessK int  `json:"witness_k"`
	// Exact reports that r is a multiple of the Pisano period.
	Exact bool `json:"exact"`
}

// EstimationResult is the full report of one estimation run.
type EstimationResult struct {
	RunID          string         `json:"run_id"`
	Modulus        uint64         `json:"modulus"`
	TermQubits     int            `json:"term_qubits"`
	CountingQubits int            `json:"counting_qubits"`
	TotalQubits    int            `json:"total_qubits"`
	Shots          int            `json:"shots"`
	Seed           uint64         `json:"seed"`
	GateCount      int            `json:"gate_count"`
	Amplitudes     int            `json:"amplitudes"`
	DurationMS     float64        `json:"duration_ms"`
	Counts         map[string]int `json:"counts"`
	Rows           []PhaseRow     `json:"rows"`
	Histogram      map[int]int    `json:"histogram"`
	Mode           int            `json:"mode"`
	Pisano         uint64         `json:"pisano_period"`
	Checks         []PeriodCheck  `json:"checks"`
	CreatedAt      time.Time      `json:"created_at"`
}

// RunSummary is one line of the run history.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Modulus   uint64    `json:"modulus"`
	Shots     int       `json:"shots"`
	Seed      uint64    `json:"seed"`
	Mode      int       `json:"mode"`
	Pisano    uint64    `json:"pisano_period"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchResult groups the runs of one CLI invocation.
type BatchResult struct {
	Results []EstimationResult `json:"results"`
	Errors  []RunError         `json:"errors,omitempty"`
}

// RunError reports a modulus whose run failed.
type RunError struct {
	Modulus int64  `json:"modulus"`
	Error   string `json:"error"`
}

// CapacityResponse describes the largest simulation the host accepts.
type CapacityResponse struct {
	AvailableBytes uint64 `json:"available_bytes"`
	MaxQubits      int    `json:"max_qubits"`
	MaxModulus     uint64 `json:"max_modulus"`
	Ceiling        int    `json:"ceiling"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
