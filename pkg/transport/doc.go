// Package transport defines the datagram port used by the node and provides
// two implementations: udp (IPv4 multicast) and mem (in-process broadcast bus).
//
// Key concepts:
// - Datagram: an unreliable, unordered broadcast medium. Send fans a frame out
//   to every member of the group; Recv yields the next inbound frame.
// - Frames are opaque bytes. Decoding and validation live in pkg/protocol.
// - Implementations drop inbound frames when their receive queue is full
//   rather than blocking the socket reader.
package transport
