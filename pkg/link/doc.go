// Package link provides the serial packet protocol between the panel
// and its companion device.
package link

// The companion device streams ASCII packets over a peer-to-peer byte
// channel (e.g. serial port):
//
//	<PKT_START>TYPE:<type>|DATA:<data>|CHECKSUM:<n><PKT_END>
//
// where n is the sum of the bytes of type and data modulo 256, in decimal.
// The stream is recoverable from garbage and truncated packets: the
// Assembler drops whatever it can't frame and resynchronizes on the next
// start marker.
//
// Producer: Receiver (reads the transport, never blocks on the consumer)
// Consumer: Worker (decodes and dispatches to a MessageHandler)
