//go:build !oxyrelease

package arena

// ContractChecks reports whether contract violations panic. It is true unless the module
// is built with the oxyrelease tag.
const ContractChecks = true
