// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/wire"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various chain events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTBlockConnected indicates the associated block was connected to the
	// main chain.
	NTBlockConnected NotificationType = iota

	// NTBlockDisconnected indicates the associated block was disconnected
	// from the main chain during a reorganization.
	NTBlockDisconnected

	// NTNewTipBlockChecked indicates a new block that extends the current
	// best chain was fully validated.
	NTNewTipBlockChecked

	// NTReorganization indicates the blockchain is in the process of a
	// reorganization.
	NTReorganization
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTBlockConnected:     "NTBlockConnected",
	NTBlockDisconnected:  "NTBlockDisconnected",
	NTNewTipBlockChecked: "NTNewTipBlockChecked",
	NTReorganization:     "NTReorganization",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return "Unknown Notification Type"
}

// BlockConnectedNtfnsData is the structure for data indicating a block was
// connected to the main chain.
type BlockConnectedNtfnsData struct {
	// Block is the block that was connected.
	Block *wire.MsgBlock

	// Height is the height the block was connected at.
	Height int64
}

// BlockDisconnectedNtfnsData is the structure for data indicating a block
// was disconnected from the main chain.
type BlockDisconnectedNtfnsData struct {
	// Block is the block that was disconnected.
	Block *wire.MsgBlock

	// Height is the height the block was connected at prior to being
	// disconnected.
	Height int64
}

// ReorganizationNtfnsData is the structure for data indicating a reorg.
type ReorganizationNtfnsData struct {
	// OldHash and OldHeight identify the tip prior to the reorganization.
	OldHash   chainhash.Hash
	OldHeight int64

	// NewHash and NewHeight identify the tip after the reorganization.
	NewHash   chainhash.Hash
	NewHeight int64
}

// Notification defines notification that is sent to the caller via the
// callback function provided during the call to New and consists of a
// notification type as well as associated data that depends on the type as
// follows:
//
//	NTBlockConnected:     *BlockConnectedNtfnsData
//	NTBlockDisconnected:  *BlockDisconnectedNtfnsData
//	NTNewTipBlockChecked: *wire.MsgBlock
//	NTReorganization:     *ReorganizationNtfnsData
type Notification struct {
	Type NotificationType
	Data interface{}
}

// sendNotification sends a notification with the passed type and data if the
// caller requested notifications by providing a callback function in the
// call to New.
//
// While a reorganization is executing the notification is queued instead and
// delivered after the reorganization completes, so callbacks never run while
// the chain is between tips.
//
// This function MUST be called with the chain state lock held (for writes).
// The lock is released while the callback executes and reacquired before
// returning so callbacks can safely call back into the chain query methods.
func (b *BlockChain) sendNotification(typ NotificationType, data interface{}) {
	if b.notifications == nil {
		return
	}

	n := Notification{Type: typ, Data: data}
	if b.reorgActive {
		b.deferredNtfns = append(b.deferredNtfns, &n)
		return
	}
	b.chainLock.Unlock()
	b.notifications(&n)
	b.chainLock.Lock()
}
