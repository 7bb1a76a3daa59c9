//go:build oxyrelease

package arena

// ContractChecks reports whether contract violations panic. Release builds disable them.
const ContractChecks = false
