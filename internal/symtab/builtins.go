package symtab

// Builtin describes a runtime-provided I/O function
type Builtin struct {
	Name        string
	Params      []string
	NeedsBuffer bool
	Doc         string
}

// Builtins is the standard I/O library, registered before program functions
var Builtins = []Builtin{
	{Name: "accio_bombarda", Params: []string{"precision"}, NeedsBuffer: true, Doc: "reads a decimal number scaled by 10^precision"},
	{Name: "accio", NeedsBuffer: true, Doc: "reads a signed integer"},
	{Name: "flagrate_bombarda", Params: []string{"precision", "number"}, NeedsBuffer: true, Doc: "prints number/10^precision with a newline"},
	{Name: "flagrate_s", Params: []string{"string"}, Doc: "prints a NUL-terminated string"},
	{Name: "flagrate", Params: []string{"number"}, NeedsBuffer: true, Doc: "prints a signed integer with a newline"},
}
