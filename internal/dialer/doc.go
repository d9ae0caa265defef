// Package dialer resolves SOCKS5 destinations and opens the outbound TCP
// connection for a request.
//
// Domain names are resolved through a Resolver (the system resolver, a DNS
// server queried directly, or a static hosts table in front of either) and the
// first IPv4 candidate is preferred. Connector dials the chosen address with a
// socket of the matching family.
package dialer
