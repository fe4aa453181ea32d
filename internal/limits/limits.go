// Package limits holds the normative sizing constants shared by every
// layer of the relay: buffer pool, send queues, protocol framing, message
// history, and the connection table.
package limits

const (
	// MaxNick is the maximum nickname length in bytes, excluding any
	// terminator.
	MaxNick = 20

	// MaxMsg is the maximum message-body length in bytes.
	MaxMsg = 140

	// TSLen is the width of the "[HH:MM:SS]" timestamp emitted by the
	// "new" command, not counting the space that follows it.
	TSLen = 10

	// BufCap is the capacity of every pooled buffer and every connection's
	// input buffer.
	BufCap = TSLen + MaxNick + MaxMsg + 3

	// MaxHist is the message history ring capacity.
	MaxHist = 50

	// MaxConn is the connection table capacity, including the reserved
	// listener slot at index 0.
	MaxConn = 1024

	// PoolSize is the fixed count of buffers owned by the buffer pool.
	PoolSize = 16

	// DefaultNick is the nickname assigned to a connection at accept time.
	DefaultNick = "anonym"
)
