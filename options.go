package models

// =====================================
// Write Options
// =====================================

// SetOptions controls a single field write
type SetOptions struct {
	// Strict rejects unknown fields with an access error instead of ignoring them.
	Strict bool

	// Unfiltered stores the value as given, skipping setters and accessors.
	Unfiltered bool
}

// SetOption configures a single field write
type SetOption interface {
	ApplySet(opts *SetOptions)
}

// FillOptions controls a mass assignment
type FillOptions struct {
	// BypassSecurity ignores the fillable and secured policy.
	BypassSecurity bool

	// Strict rejects non-fillable and unknown fields instead of skipping them.
	Strict bool
}

// FillOption configures a mass assignment
type FillOption interface {
	ApplyFill(opts *FillOptions)
}

// StrictOption implements SetOption for strict writes
type StrictOption struct{}

func (StrictOption) ApplySet(opts *SetOptions) { opts.Strict = true }

// UnfilteredOption implements SetOption for raw writes
type UnfilteredOption struct{}

func (UnfilteredOption) ApplySet(opts *SetOptions) { opts.Unfiltered = true }

// BypassOption implements FillOption for unguarded mass assignment
type BypassOption struct{}

func (BypassOption) ApplyFill(opts *FillOptions) { opts.BypassSecurity = true }

// StrictFillOption implements FillOption for strict mass assignment
type StrictFillOption struct{}

func (StrictFillOption) ApplyFill(opts *FillOptions) { opts.Strict = true }

// Strict makes Set fail on unknown fields
func Strict() SetOption { return StrictOption{} }

// Unfiltered makes Set store the raw value
func Unfiltered() SetOption { return UnfilteredOption{} }

// BypassSecurity makes Fill apply every field regardless of the fillable policy
func BypassSecurity() FillOption { return BypassOption{} }

// StrictFill makes Fill fail on fields it would otherwise skip
func StrictFill() FillOption { return StrictFillOption{} }

func buildSetOptions(opts []SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		opt.ApplySet(&o)
	}
	return o
}

func buildFillOptions(opts []FillOption) FillOptions {
	var o FillOptions
	for _, opt := range opts {
		opt.ApplyFill(&o)
	}
	return o
}
