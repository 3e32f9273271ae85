package types

// TransportProtocolNumber identifies a transport-layer protocol on the wire,
// e.g. TCP's value of 6
type TransportProtocolNumber uint32
