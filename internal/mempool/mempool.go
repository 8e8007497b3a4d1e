// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"container/heap"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/blockchain"
	"github.com/halcyonnet/hcnd/chaincfg"
	"github.com/halcyonnet/hcnd/wire"
)

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related to
	// policy.
	Policy Policy

	// ChainParams identifies which chain parameters the mempool is
	// associated with.
	ChainParams *chaincfg.Params

	// FetchUtxoView defines the function to use to fetch unspent
	// transaction output information for the provided transaction from
	// the point of view of the current main chain tip.
	FetchUtxoView func(*wire.MsgTx) (*blockchain.UtxoViewpoint, error)

	// BestSnapshot defines the function to use to access information
	// about the current best block.  The returned instance should be
	// treated as immutable.
	BestSnapshot func() *blockchain.BestState

	// Verifier defines the capability used to verify input unlocking
	// scripts against the locking scripts of the outputs they spend.
	Verifier blockchain.ScriptVerifier
}

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.
type TxDesc struct {
	// Tx is the transaction associated with the entry.
	Tx *wire.MsgTx

	// Hash is the hash of the transaction.
	Hash chainhash.Hash

	// Added is the time when the entry was added to the pool.
	Added time.Time

	// Height is the best block height when the entry was added to the
	// pool.
	Height int64

	// Fee is the total fee the transaction associated with the entry
	// pays.
	Fee int64

	// TxSize is the size of the transaction associated with the entry.
	TxSize int64

	// FeeRate is the fee the transaction pays in atoms per kilobyte.
	FeeRate int64
}

// TxPool is used as a source of transactions that need to be mined into
// blocks and relayed to other peers.  It is safe for concurrent access from
// multiple peers.
type TxPool struct {
	// lastUpdated tracks the last time a transaction was added to or
	// removed from the pool.  It is accessed atomically.
	lastUpdated int64

	cfg Config

	mtx       sync.RWMutex
	pool      map[chainhash.Hash]*TxDesc
	outpoints map[wire.OutPoint]*TxDesc
	totalSize int64
}

// New returns a new memory pool for validating and storing standalone
// transactions until they are mined into a block.
func New(cfg *Config) *TxPool {
	poolCfg := *cfg
	if poolCfg.Policy.MaxSizeBytes == 0 {
		poolCfg.Policy.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if poolCfg.Policy.TxTTL == 0 {
		poolCfg.Policy.TxTTL = DefaultTxTTL
	}
	if poolCfg.Policy.ReplacementFeeIncrement == 0 {
		poolCfg.Policy.ReplacementFeeIncrement = DefaultReplacementFeeIncrement
	}
	if poolCfg.Policy.MaxReplacementEvictions == 0 {
		poolCfg.Policy.MaxReplacementEvictions = DefaultMaxReplacementEvictions
	}
	return &TxPool{
		cfg:       poolCfg,
		pool:      make(map[chainhash.Hash]*TxDesc),
		outpoints: make(map[wire.OutPoint]*TxDesc),
	}
}

// updateLastUpdated records that the pool was just mutated.
func (mp *TxPool) updateLastUpdated() {
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
}

// LastUpdated returns the last time a transaction was added to or removed
// from the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}

// isTransactionInPool returns whether or not the passed transaction exists
// in the pool.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) isTransactionInPool(hash *chainhash.Hash) bool {
	_, exists := mp.pool[*hash]
	return exists
}

// IsTransactionInPool returns whether or not the passed transaction exists
// in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) IsTransactionInPool(hash *chainhash.Hash) bool {
	mp.mtx.RLock()
	inPool := mp.isTransactionInPool(hash)
	mp.mtx.RUnlock()
	return inPool
}

// FetchTransaction returns the requested transaction from the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) FetchTransaction(hash *chainhash.Hash) (*wire.MsgTx, error) {
	mp.mtx.RLock()
	desc, exists := mp.pool[*hash]
	mp.mtx.RUnlock()
	if !exists {
		return nil, fmt.Errorf("transaction is not in the pool")
	}
	return desc.Tx, nil
}

// Count returns the number of transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := len(mp.pool)
	mp.mtx.RUnlock()
	return count
}

// TotalSizeBytes returns the total size, in bytes, of the serialized
// transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) TotalSizeBytes() int64 {
	mp.mtx.RLock()
	size := mp.totalSize
	mp.mtx.RUnlock()
	return size
}

// TxDescs returns a slice of descriptors for all of the transactions in the
// pool.  The descriptors must be treated as immutable.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()
	return descs
}

// poolSpenders returns the pool entries that spend outputs of the provided
// transaction.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) poolSpenders(txHash *chainhash.Hash, numOutputs int) []*TxDesc {
	var spenders []*TxDesc
	outpoint := wire.OutPoint{Hash: *txHash}
	for i := uint32(0); i < uint32(numOutputs); i++ {
		outpoint.Index = i
		if spender, exists := mp.outpoints[outpoint]; exists {
			spenders = append(spenders, spender)
		}
	}
	return spenders
}

// descendants returns all pool entries that directly or transitively spend
// outputs of the transaction associated with the provided descriptor.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) descendants(desc *TxDesc) []*TxDesc {
	var result []*TxDesc
	seen := map[chainhash.Hash]struct{}{desc.Hash: {}}
	queue := []*TxDesc{desc}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, spender := range mp.poolSpenders(&current.Hash, len(current.Tx.TxOut)) {
			if _, ok := seen[spender.Hash]; ok {
				continue
			}
			seen[spender.Hash] = struct{}{}
			result = append(result, spender)
			queue = append(queue, spender)
		}
	}
	return result
}

// removeTransaction removes the entry with the provided hash from the pool.
// When removeRedeemers is true, any entries that spend outputs of the
// removed transaction are recursively removed as well since they are no
// longer valid without it.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(txHash *chainhash.Hash, removeRedeemers bool) {
	desc, exists := mp.pool[*txHash]
	if !exists {
		return
	}

	if removeRedeemers {
		// Remove any transactions which rely on this one.
		outpoint := wire.OutPoint{Hash: *txHash}
		for i := uint32(0); i < uint32(len(desc.Tx.TxOut)); i++ {
			outpoint.Index = i
			if spender, exists := mp.outpoints[outpoint]; exists {
				mp.removeTransaction(&spender.Hash, true)
			}
		}
	}

	for _, txIn := range desc.Tx.TxIn {
		delete(mp.outpoints, txIn.PreviousOutPoint)
	}
	delete(mp.pool, *txHash)
	mp.totalSize -= desc.TxSize
	mp.updateLastUpdated()
}

// RemoveTransaction removes the passed transaction from the mempool.  When
// the removeRedeemers flag is set, any transactions that redeem outputs of
// the removed transaction will also be removed recursively from the mempool,
// as they would otherwise become orphans.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(tx *wire.MsgTx, removeRedeemers bool) {
	txHash := tx.TxHash()
	mp.mtx.Lock()
	mp.removeTransaction(&txHash, removeRedeemers)
	mp.mtx.Unlock()
}

// RemoveDoubleSpends removes all transactions which spend outputs spent by
// the passed transaction from the memory pool.  Removing those transactions
// then leads to removing all transactions which rely on them, recursively.
// This is necessary when a block is connected to the main chain because the
// block may contain transactions which were previously unknown to the
// memory pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveDoubleSpends(tx *wire.MsgTx) {
	txHash := tx.TxHash()
	mp.mtx.Lock()
	for _, txIn := range tx.TxIn {
		if conflict, exists := mp.outpoints[txIn.PreviousOutPoint]; exists {
			if conflict.Hash != txHash {
				mp.removeTransaction(&conflict.Hash, true)
			}
		}
	}
	mp.mtx.Unlock()
}

// fetchInputView fetches a view of the unspent outputs referenced by the
// provided transaction from the main chain tip, extended with the outputs of
// any referenced transactions that are currently in the pool so chained
// unconfirmed spends validate.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) fetchInputView(tx *wire.MsgTx, nextHeight int64) (*blockchain.UtxoViewpoint, error) {
	view, err := mp.cfg.FetchUtxoView(tx)
	if err != nil {
		return nil, err
	}

	for _, txIn := range tx.TxIn {
		prevOut := txIn.PreviousOutPoint
		if entry := view.LookupEntry(prevOut); entry != nil && !entry.IsSpent() {
			continue
		}
		if parent, exists := mp.pool[prevOut.Hash]; exists {
			view.AddTxOuts(parent.Tx, nextHeight, false)
		}
	}
	return view, nil
}

// checkReplacementPolicy enforces the replacement policy against the provided
// direct conflicts and returns the full set of pool entries, conflicts plus
// their in-pool descendants, that accepting the transaction would evict.
//
// The replacement must not spend any output of a transaction in the eviction
// set, since those outputs cease to exist when the set is evicted and the
// replacement would be left spending an output known to neither the chain nor
// the pool.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkReplacementPolicy(tx *wire.MsgTx, txHash *chainhash.Hash, fee, feeRate int64, conflicts []*TxDesc) ([]*TxDesc, error) {
	evictions := make([]*TxDesc, 0, len(conflicts))
	seen := make(map[chainhash.Hash]struct{}, len(conflicts))
	for _, conflict := range conflicts {
		// The replacement must pay a strictly higher absolute fee and
		// exceed each replaced entry's fee rate by the configured
		// increment.
		if fee <= conflict.Fee {
			str := fmt.Sprintf("transaction %s with fee %d does not pay "+
				"more than conflicting transaction %s with fee %d", txHash,
				fee, conflict.Hash, conflict.Fee)
			return nil, txRuleError(ErrReplacementFeeTooLow, str)
		}
		minFeeRate := conflict.FeeRate + mp.cfg.Policy.ReplacementFeeIncrement
		if feeRate < minFeeRate {
			str := fmt.Sprintf("transaction %s with fee rate %d does not "+
				"exceed the fee rate of conflicting transaction %s by the "+
				"required increment (min %d)", txHash, feeRate,
				conflict.Hash, minFeeRate)
			return nil, txRuleError(ErrReplacementFeeTooLow, str)
		}

		if _, ok := seen[conflict.Hash]; !ok {
			seen[conflict.Hash] = struct{}{}
			evictions = append(evictions, conflict)
		}
		for _, descendant := range mp.descendants(conflict) {
			if _, ok := seen[descendant.Hash]; ok {
				continue
			}
			seen[descendant.Hash] = struct{}{}
			evictions = append(evictions, descendant)
		}
	}

	for _, txIn := range tx.TxIn {
		if _, ok := seen[txIn.PreviousOutPoint.Hash]; ok {
			str := fmt.Sprintf("replacement transaction %s spends output "+
				"%v of transaction %s it would evict", txHash,
				txIn.PreviousOutPoint, txIn.PreviousOutPoint.Hash)
			return nil, txRuleError(ErrReplacementSpend, str)
		}
	}

	if len(evictions) > mp.cfg.Policy.MaxReplacementEvictions {
		str := fmt.Sprintf("transaction %s would evict %d pool "+
			"transactions which exceeds the maximum of %d", txHash,
			len(evictions), mp.cfg.Policy.MaxReplacementEvictions)
		return nil, txRuleError(ErrTooManyReplacements, str)
	}
	return evictions, nil
}

// maybeAcceptTransaction is the internal function which implements the
// public SubmitTransaction.  See the comment for SubmitTransaction for more
// details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAcceptTransaction(tx *wire.MsgTx) (*TxDesc, error) {
	txHash := tx.TxHash()

	// Don't accept the transaction if it already exists in the pool.  This
	// applies to orphan transactions as well.  This check is intended to
	// be a quick check to weed out duplicates.
	if mp.isTransactionInPool(&txHash) {
		str := fmt.Sprintf("already have transaction %s", txHash)
		return nil, txRuleError(ErrDuplicate, str)
	}

	// Perform preliminary validation checks on the transaction.  This
	// makes use of consensus validation rules to ensure it is well formed.
	err := blockchain.CheckTransactionSanity(tx, mp.cfg.ChainParams)
	if err != nil {
		return nil, wrapChainError(err)
	}

	// A standalone transaction must not be a coinbase transaction.
	if blockchain.IsCoinBaseTx(tx) {
		str := fmt.Sprintf("transaction %s is an individual coinbase",
			txHash)
		return nil, txRuleError(ErrCoinbase, str)
	}

	// The transaction must be finalized to be mined in the next block.
	best := mp.cfg.BestSnapshot()
	nextBlockHeight := best.Height + 1
	if !blockchain.IsFinalizedTransaction(tx, nextBlockHeight,
		best.MedianTime.Unix()) {

		str := fmt.Sprintf("transaction %s is not finalized", txHash)
		return nil, txRuleError(ErrNonFinal, str)
	}

	// Track which pool entries this transaction conflicts with, meaning
	// they spend one or more of the same outputs.  A conflicting
	// transaction is only accepted under the replacement policy enforced
	// below.
	var conflicts []*TxDesc
	conflictSeen := make(map[chainhash.Hash]struct{})
	for _, txIn := range tx.TxIn {
		if spender, exists := mp.outpoints[txIn.PreviousOutPoint]; exists {
			if _, ok := conflictSeen[spender.Hash]; !ok {
				conflictSeen[spender.Hash] = struct{}{}
				conflicts = append(conflicts, spender)
			}
		}
	}

	// Fetch all of the unspent transaction outputs referenced by the
	// inputs to this transaction, extended with unconfirmed outputs from
	// the pool itself so chained unconfirmed spends are accepted.
	view, err := mp.fetchInputView(tx, nextBlockHeight)
	if err != nil {
		return nil, err
	}

	// Don't allow the transaction if it exists in the main chain and is
	// not already fully spent.
	outpoint := wire.OutPoint{Hash: txHash}
	for txOutIdx := range tx.TxOut {
		outpoint.Index = uint32(txOutIdx)
		entry := view.LookupEntry(outpoint)
		if entry != nil && !entry.IsSpent() {
			return nil, txRuleError(ErrDuplicate, "transaction already exists")
		}
	}

	// Ensure every referenced output is known before running the full
	// input checks so an unknown input is reported distinctly from an
	// invalid one.  An output the view knows but reports as spent has been
	// consumed in the chain, which is a double spend as opposed to a
	// not-yet-known parent.
	for _, txIn := range tx.TxIn {
		entry := view.LookupEntry(txIn.PreviousOutPoint)
		if entry != nil && entry.IsSpent() {
			str := fmt.Sprintf("transaction %s spends output %v which has "+
				"already been spent", txHash, txIn.PreviousOutPoint)
			return nil, txRuleError(ErrDoubleSpend, str)
		}
		if entry == nil {
			str := fmt.Sprintf("transaction %s references output %v which "+
				"is not available", txHash, txIn.PreviousOutPoint)
			return nil, txRuleError(ErrOrphanPolicy, str)
		}
	}

	// Perform several checks on the transaction inputs using the invariant
	// rules for what transactions are allowed into blocks.  Also returns
	// the fees associated with the transaction which will be used later.
	txFee, err := blockchain.CheckTransactionInputs(tx, nextBlockHeight,
		view, mp.cfg.ChainParams)
	if err != nil {
		return nil, wrapChainError(err)
	}

	// Don't allow transactions with fee rates that are too low to get into
	// a mined block.
	serializedSize := int64(tx.SerializeSize())
	minFee := calcMinRequiredTxRelayFee(serializedSize,
		mp.cfg.Policy.MinRelayTxFee)
	if txFee < minFee {
		str := fmt.Sprintf("transaction %s has fee %d which is under the "+
			"required amount of %d", txHash, txFee, minFee)
		return nil, txRuleError(ErrFeeTooLow, str)
	}
	feeRate := calcFeeRate(txFee, serializedSize)

	// Enforce the replacement policy when the transaction conflicts with
	// existing pool entries.  The policy yields the full set of entries to
	// evict when the replacement is accepted.
	var evictions []*TxDesc
	if len(conflicts) > 0 {
		evictions, err = mp.checkReplacementPolicy(tx, &txHash, txFee,
			feeRate, conflicts)
		if err != nil {
			return nil, err
		}
	}

	// Verify the unlocking scripts of every input.
	err = blockchain.ValidateTransactionScripts(tx, view, mp.cfg.Verifier)
	if err != nil {
		return nil, wrapChainError(err)
	}

	// Evict the replaced entries and their descendants before inserting
	// the replacement so both versions are never present together.
	for _, eviction := range evictions {
		log.Debugf("Replacing transaction %s (fee rate %d) with %s (fee "+
			"rate %d)", eviction.Hash, eviction.FeeRate, txHash, feeRate)
		mp.removeTransaction(&eviction.Hash, false)
	}

	desc := &TxDesc{
		Tx:      tx,
		Hash:    txHash,
		Added:   time.Now(),
		Height:  best.Height,
		Fee:     txFee,
		TxSize:  serializedSize,
		FeeRate: feeRate,
	}
	mp.pool[txHash] = desc
	for _, txIn := range tx.TxIn {
		mp.outpoints[txIn.PreviousOutPoint] = desc
	}
	mp.totalSize += serializedSize
	mp.updateLastUpdated()

	log.Debugf("Accepted transaction %s (pool size: %d, bytes: %d)", txHash,
		len(mp.pool), mp.totalSize)
	return desc, nil
}

// SubmitTransaction validates the passed transaction against the unspent
// output set extended with the pool's own unconfirmed outputs and adds it to
// the pool when it passes both the consensus rules and the pool acceptance
// policies.
//
// Transactions that conflict with existing pool entries are only accepted
// under the replacement policy: the new transaction must pay a strictly
// higher absolute fee than each entry it replaces, exceed each replaced
// entry's fee rate by the configured increment, spend no outputs of the
// entries being evicted, and not evict more entries than the configured
// maximum.  The replaced entries and all of their in-pool descendants are
// evicted atomically with the insertion.
//
// The pool is trimmed back to its configured byte budget after a successful
// insertion, evicting the entries with the lowest descendant-aware fee rates
// first, so accepting one transaction can evict unrelated ones.
//
// This function is safe for concurrent access.
func (mp *TxPool) SubmitTransaction(tx *wire.MsgTx) (*TxDesc, error) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	desc, err := mp.maybeAcceptTransaction(tx)
	if err != nil {
		return nil, err
	}
	mp.limitPoolSize()
	return desc, nil
}

// descendantStats sums the fees and serialized sizes of the provided entry
// together with all of its in-pool descendants.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) descendantStats(desc *TxDesc) (int64, int64) {
	totalFees := desc.Fee
	totalSize := desc.TxSize
	for _, descendant := range mp.descendants(desc) {
		totalFees += descendant.Fee
		totalSize += descendant.TxSize
	}
	return totalFees, totalSize
}

// limitPoolSize evicts entries until the pool no longer exceeds its byte
// budget.  Entries are ranked by the fee rate of the entry combined with all
// of its in-pool descendants so a cheap parent whose child pays a large fee
// is not evicted ahead of the child.  The entry with the lowest such rate is
// evicted along with its descendants, which would be orphaned without it.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) limitPoolSize() int {
	var numEvicted int
	for mp.totalSize > mp.cfg.Policy.MaxSizeBytes {
		// Find the entry with the lowest descendant-aware fee rate,
		// breaking ties by evicting the oldest first.
		var worst *TxDesc
		var worstRate int64
		for _, desc := range mp.pool {
			fees, size := mp.descendantStats(desc)
			rate := calcFeeRate(fees, size)
			if worst == nil || rate < worstRate ||
				(rate == worstRate && desc.Added.Before(worst.Added)) {

				worst = desc
				worstRate = rate
			}
		}
		if worst == nil {
			break
		}

		log.Debugf("Evicting transaction %s (effective fee rate %d) due "+
			"to pool size limit", worst.Hash, worstRate)
		before := len(mp.pool)
		mp.removeTransaction(&worst.Hash, true)
		numEvicted += before - len(mp.pool)
	}
	return numEvicted
}

// EvictIfOverCapacity evicts the entries with the lowest descendant-aware
// fee rates, along with their descendants, until the pool's total byte size
// no longer exceeds the configured budget.  The number of evicted entries is
// returned.
//
// This function is safe for concurrent access.
func (mp *TxPool) EvictIfOverCapacity() int {
	mp.mtx.Lock()
	numEvicted := mp.limitPoolSize()
	mp.mtx.Unlock()
	return numEvicted
}

// ExpireTransactions removes all entries that were added to the pool longer
// ago than the configured time to live relative to the provided current
// time, along with any entries that depend on them.  The number of removed
// entries is returned.
//
// This function is safe for concurrent access.
func (mp *TxPool) ExpireTransactions(now time.Time) int {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	cutoff := now.Add(-mp.cfg.Policy.TxTTL)
	var expired []chainhash.Hash
	for hash, desc := range mp.pool {
		if desc.Added.Before(cutoff) {
			expired = append(expired, hash)
		}
	}

	before := len(mp.pool)
	for i := range expired {
		mp.removeTransaction(&expired[i], true)
	}
	return before - len(mp.pool)
}

// HandleConnectedBlock updates the pool for a block that was connected to
// the main chain.  Transactions mined by the block are removed from the pool
// and any pool entries that are no longer valid because they conflict with a
// mined transaction are removed along with their descendants.
//
// This function is safe for concurrent access.
func (mp *TxPool) HandleConnectedBlock(block *wire.MsgBlock) {
	for txIdx, tx := range block.Transactions {
		if txIdx == 0 {
			continue
		}
		mp.RemoveTransaction(tx, false)
		mp.RemoveDoubleSpends(tx)
	}
}

// HandleDisconnectedBlock updates the pool for a block that was disconnected
// from the main chain during a reorganization.  The block's non-coinbase
// transactions are re-admitted through the normal submission path and any
// that are no longer valid are silently dropped.
//
// This function is safe for concurrent access.
func (mp *TxPool) HandleDisconnectedBlock(block *wire.MsgBlock) {
	for txIdx, tx := range block.Transactions {
		if txIdx == 0 {
			continue
		}
		if _, err := mp.SubmitTransaction(tx); err != nil {
			log.Debugf("Dropping disconnected transaction %s: %v",
				tx.TxHash(), err)
		}
	}
}

// txPrioItem houses a transaction along with the effective fee rate used to
// order it in the priority queue.
type txPrioItem struct {
	desc       *TxDesc
	effFeeRate int64
}

// txPriorityQueue implements a priority queue of txPrioItem elements ordered
// by descending effective fee rate with ties broken by earliest arrival.
type txPriorityQueue []*txPrioItem

// Len returns the number of items in the priority queue.  It is part of the
// heap.Interface implementation.
func (pq txPriorityQueue) Len() int {
	return len(pq)
}

// Less returns whether the item in the priority queue with index i should
// sort before the item with index j.  It is part of the heap.Interface
// implementation.
func (pq txPriorityQueue) Less(i, j int) bool {
	if pq[i].effFeeRate != pq[j].effFeeRate {
		return pq[i].effFeeRate > pq[j].effFeeRate
	}
	return pq[i].desc.Added.Before(pq[j].desc.Added)
}

// Swap swaps the items at the passed indices in the priority queue.  It is
// part of the heap.Interface implementation.
func (pq txPriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

// Push pushes the passed item onto the priority queue.  It is part of the
// heap.Interface implementation.
func (pq *txPriorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*txPrioItem))
}

// Pop removes the highest priority item from the priority queue.  It is part
// of the heap.Interface implementation.
func (pq *txPriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// PrioritizedTransactions returns the pool's transactions ordered by
// descending effective fee rate, where the effective rate of an entry
// includes the fees and sizes of its in-pool descendants, with ties broken
// by earliest arrival.  No transaction appears before any of its in-pool
// ancestors, so the returned sequence can be applied in order.  Entries are
// accumulated until adding another would exceed maxBytes; entries that do
// not fit are skipped along with their descendants.
//
// The ordering is recomputed from the current pool contents on every call.
//
// This function is safe for concurrent access.
func (mp *TxPool) PrioritizedTransactions(maxBytes int64) []*TxDesc {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	// Count the number of distinct in-pool parents of each entry and
	// record the children of each entry so dependencies unlock as their
	// ancestors are yielded.
	depCount := make(map[chainhash.Hash]int, len(mp.pool))
	children := make(map[chainhash.Hash][]*TxDesc, len(mp.pool))
	for _, desc := range mp.pool {
		parents := make(map[chainhash.Hash]struct{})
		for _, txIn := range desc.Tx.TxIn {
			parentHash := txIn.PreviousOutPoint.Hash
			if _, exists := mp.pool[parentHash]; !exists {
				continue
			}
			if _, ok := parents[parentHash]; ok {
				continue
			}
			parents[parentHash] = struct{}{}
			children[parentHash] = append(children[parentHash], desc)
		}
		depCount[desc.Hash] = len(parents)
	}

	// Seed the priority queue with every entry that has no in-pool
	// ancestors.
	pq := make(txPriorityQueue, 0, len(mp.pool))
	for _, desc := range mp.pool {
		if depCount[desc.Hash] == 0 {
			fees, size := mp.descendantStats(desc)
			pq = append(pq, &txPrioItem{desc: desc, effFeeRate: calcFeeRate(fees, size)})
		}
	}
	heap.Init(&pq)

	var result []*TxDesc
	var totalBytes int64
	for pq.Len() > 0 {
		item := heap.Pop(&pq).(*txPrioItem)
		desc := item.desc

		// Skipping an entry that does not fit also blocks its descendants
		// since their dependency counts never reach zero.
		if totalBytes+desc.TxSize > maxBytes {
			continue
		}
		totalBytes += desc.TxSize
		result = append(result, desc)

		for _, child := range children[desc.Hash] {
			depCount[child.Hash]--
			if depCount[child.Hash] == 0 {
				fees, size := mp.descendantStats(child)
				heap.Push(&pq, &txPrioItem{
					desc:       child,
					effFeeRate: calcFeeRate(fees, size),
				})
			}
		}
	}
	return result
}
