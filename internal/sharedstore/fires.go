package sharedstore

import (
	"fmt"

	"github.com/j-veylop/rewardgate/internal/models"
)

// FireRetention is how many relayed fires are kept behind the newest one.
const FireRetention int64 = 256

const (
	fireFieldEvent  = "event"
	fireFieldEntity = "entity"
	fireFieldAt     = "at"
)

// AppendFire enqueues a fire and prunes entries older than FireRetention.
// It must run inside Update so the sequence number stays consistent.
func AppendFire(tx Tx, fire models.ThresholdFire) (int64, error) {
	seq, _, err := tx.GetInt(KeyFireSeq)
	if err != nil {
		return 0, err
	}
	seq++

	if err := tx.SetString(FireKey(seq, fireFieldEvent), fire.EventID); err != nil {
		return 0, err
	}
	if err := tx.SetString(FireKey(seq, fireFieldEntity), fire.EntityID); err != nil {
		return 0, err
	}
	if err := tx.SetFloat(FireKey(seq, fireFieldAt), ToUnix(fire.At)); err != nil {
		return 0, err
	}
	if err := tx.SetInt(KeyFireSeq, seq); err != nil {
		return 0, err
	}

	keys, err := tx.Keys(FirePrefix())
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if k == KeyFireSeq {
			continue
		}
		n, err := FireSeqFromKey(k)
		if err != nil {
			continue
		}
		if n <= seq-FireRetention {
			if err := tx.Delete(k); err != nil {
				return 0, err
			}
		}
	}

	return seq, nil
}

// FiresAfter returns every retained fire with a sequence number above
// cursor, oldest first, together with the newest sequence number.
func FiresAfter(r Reader, cursor int64) ([]models.ThresholdFire, int64, error) {
	head, _, err := r.GetInt(KeyFireSeq)
	if err != nil {
		return nil, cursor, err
	}
	if head <= cursor {
		return nil, head, nil
	}

	start := cursor + 1
	if oldest := head - FireRetention + 1; start < oldest {
		start = oldest
	}

	fires := make([]models.ThresholdFire, 0, head-start+1)
	for seq := start; seq <= head; seq++ {
		eventID, ok, err := r.GetString(FireKey(seq, fireFieldEvent))
		if err != nil {
			return nil, cursor, fmt.Errorf("read fire %d: %w", seq, err)
		}
		if !ok {
			continue
		}
		entityID, _, err := r.GetString(FireKey(seq, fireFieldEntity))
		if err != nil {
			return nil, cursor, fmt.Errorf("read fire %d: %w", seq, err)
		}
		at, _, err := r.GetFloat(FireKey(seq, fireFieldAt))
		if err != nil {
			return nil, cursor, fmt.Errorf("read fire %d: %w", seq, err)
		}
		fires = append(fires, models.ThresholdFire{
			Seq:      seq,
			EventID:  eventID,
			EntityID: entityID,
			At:       FromUnix(at),
		})
	}

	return fires, head, nil
}
