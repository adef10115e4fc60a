package domain

import "errors"

// Error taxonomy per spec.md §7, replacing the source's exception-based
// failure model with an explicit discriminated set the application layer
// maps onto wire failure messages.
var (
	ErrWrongPhase           = errors.New("message arrived in the wrong round phase")
	ErrUnknownRound         = errors.New("unknown round")
	ErrUnknownAlice         = errors.New("unknown alice")
	ErrBannedInput          = errors.New("input is banned")
	ErrInvalidInputProof    = errors.New("invalid input proof")
	ErrScriptTypeMismatch   = errors.New("scriptPubKey type not allowed")
	ErrAmountUnderflow      = errors.New("change amount would be negative")
	ErrMissingChainTx       = errors.New("previous transaction not found on chain")
	ErrOutputMismatch       = errors.New("reported output does not match chain")
	ErrInvalidOutputSig     = errors.New("invalid output signature")
	ErrInvalidPsbtSignature = errors.New("invalid signed psbt")
	ErrBroadcastFailed      = errors.New("broadcast failed")
	ErrDuplicateOutput      = errors.New("output already registered")
)
