package queue

import "github.com/chani890/MediWait/internal/model"

// WaitingPosition returns the 1-based place of r in the active queue, or 0
// when r is not waiting. pending must be ordered by createdAt and confirmed
// by confirmedAt, as returned by ListByStatus. Every confirmed patient is
// ahead of every pending one.
func WaitingPosition(r model.Reception, pending, confirmed []model.Reception) int {
	switch r.Status {
	case model.StatusPending:
		rank := rankOf(r.ID, pending)
		if rank == 0 {
			return 0
		}
		return len(confirmed) + rank
	case model.StatusConfirmed:
		return rankOf(r.ID, confirmed)
	default:
		return 0
	}
}

// rankOf returns the 1-based index of id in list, 0 if absent.
func rankOf(id string, list []model.Reception) int {
	for i := range list {
		if list[i].ID == id {
			return i + 1
		}
	}
	return 0
}
