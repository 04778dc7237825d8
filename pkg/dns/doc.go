// Package dns resolves the fully-qualified names behind alias rows to
// fresh IP addresses, so a worker can report an updated address back to
// the dealer via POST /alias. It forwards plain A/AAAA queries to a
// configurable list of upstream resolvers and is not a DNS server.
package dns
