package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mcav91/partfs/internal/logger"
	"github.com/mcav91/partfs/pkg/storage"
)

// Assembler tracks chunk arrival for chunked-upload transfers and assembles
// completed transfers into a single payload.
//
// State Machine (per transfer id):
//
//	Collecting -> Complete -> Terminal
//
// A transfer enters Collecting implicitly on its first chunk. Chunks may
// arrive in any order, and a duplicate index overwrites the previously
// stored bytes (last write wins). The transfer transitions to Complete the
// moment its received index set covers 0..total-1; completeness is
// index-set based, never sequence based, so a missing index is simply "not
// yet arrived". After assembly runs, successfully or not, the transfer is
// Terminal: all chunk state is removed and the transfer id, if reused,
// starts a fresh Collecting state with no resurrection of prior chunks.
//
// Chunk bytes are persisted through the staging backend under
// ".partfs/chunks/<transferID>/<index>", so an abandoned transfer leaves only
// discardable staging keys, never partial final-path content.
//
// Concurrency:
// Chunk writes for different indices of one transfer may proceed
// concurrently. The index bookkeeping and the completeness check share one
// mutex, so exactly one concurrent caller observes the Collecting->Complete
// transition and runs assembly.
type Assembler struct {
	store storage.Store

	mu        sync.Mutex
	transfers map[string]*transferState
}

type transferState struct {
	received map[int]bool
	total    int
}

// NewAssembler creates an assembler persisting chunk bytes in store.
func NewAssembler(store storage.Store) *Assembler {
	return &Assembler{
		store:     store,
		transfers: make(map[string]*transferState),
	}
}

// chunkKey returns the staging key for one chunk.
func chunkKey(transferID string, index int) string {
	return fmt.Sprintf("%s/chunks/%s/%05d", ReservedRoot, transferID, index)
}

// SaveChunk persists one chunk and reports whether its arrival completed the
// transfer. The caller that receives complete == true owns assembly.
//
// declaredLen is the request's declared byte length, or -1 when none was
// declared. A mismatch against the actual chunk size fails with
// KindBadRequest and discards the offending chunk's bytes; if the mismatch
// arrived on the transfer's final index, the whole transfer is discarded.
func (a *Assembler) SaveChunk(ctx context.Context, info *ChunkInfo, data []byte, declaredLen int64) (bool, error) {
	if declaredLen >= 0 && declaredLen != int64(len(data)) {
		// The chunk cannot be trusted; drop its bytes. A mismatched final
		// chunk tears down the transfer markers entirely.
		if err := a.store.Delete(ctx, chunkKey(info.TransferID, info.Index)); err != nil {
			logger.Warn("failed to discard mismatched chunk %d of transfer %s: %v", info.Index, info.TransferID, err)
		}
		if info.Index == info.Total-1 {
			a.Discard(ctx, info.TransferID, info.Total)
		} else {
			// A mismatched resubmit of an index that already arrived must
			// also forget the index marker: its bytes are gone, and a
			// stale marker would let the transfer report complete with a
			// hole in it. The transfer stays completable by resubmitting
			// the index.
			a.mu.Lock()
			if state := a.transfers[info.TransferID]; state != nil && state.total == info.Total {
				delete(state.received, info.Index)
			}
			a.mu.Unlock()
		}
		return false, newError("chunk", KindBadRequest,
			fmt.Errorf("declared length %d does not match received %d bytes", declaredLen, len(data)))
	}

	if err := a.store.Write(ctx, chunkKey(info.TransferID, info.Index), data); err != nil {
		return false, newError("chunk", Classify(err), err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.transfers[info.TransferID]
	if state == nil || state.total != info.Total {
		state = &transferState{received: make(map[int]bool), total: info.Total}
		a.transfers[info.TransferID] = state
	}
	state.received[info.Index] = true

	if len(state.received) < state.total {
		return false, nil
	}

	// Complete: exactly this caller observes the transition. Removing the
	// state here makes the transfer Terminal for bookkeeping purposes; the
	// chunk bytes are consumed by Assemble.
	delete(a.transfers, info.TransferID)
	return true, nil
}

// Assemble concatenates the transfer's chunks in index order into one
// payload and removes all chunk state, whether assembly succeeds or fails.
func (a *Assembler) Assemble(ctx context.Context, info *ChunkInfo) ([]byte, error) {
	defer a.Discard(ctx, info.TransferID, info.Total)

	var assembled bytes.Buffer
	for index := 0; index < info.Total; index++ {
		reader, err := a.store.Read(ctx, chunkKey(info.TransferID, index))
		if err != nil {
			return nil, newError("assemble", Classify(err),
				fmt.Errorf("chunk %d of transfer %s: %w", index, info.TransferID, err))
		}

		_, err = io.Copy(&assembled, reader)
		closeErr := reader.Close()
		if err != nil {
			return nil, newError("assemble", Classify(err),
				fmt.Errorf("reading chunk %d of transfer %s: %w", index, info.TransferID, err))
		}
		if closeErr != nil {
			logger.Warn("failed to close chunk reader for transfer %s: %v", info.TransferID, closeErr)
		}
	}

	return assembled.Bytes(), nil
}

// Discard removes all chunk bytes and bookkeeping for a transfer. Cleanup
// failures are logged, not escalated.
func (a *Assembler) Discard(ctx context.Context, transferID string, total int) {
	a.mu.Lock()
	delete(a.transfers, transferID)
	a.mu.Unlock()

	for index := 0; index < total; index++ {
		if err := a.store.Delete(ctx, chunkKey(transferID, index)); err != nil {
			logger.Warn("failed to discard chunk %d of transfer %s: %v", index, transferID, err)
		}
	}
}
