package delivery

import (
	"sort"

	"github.com/kbmc/portal-api/internal/model"
)

// DefaultPageSize is how many notifications render before "view all".
const DefaultPageSize = 5

// SortNewestFirst orders notifications by created_at descending, newest id
// first on ties. The slice is sorted in place and returned.
func SortNewestFirst(list []*model.DeliveredNotification) []*model.DeliveredNotification {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// FilterByRole keeps the notifications visible to role.
func FilterByRole(list []*model.DeliveredNotification, role string) []*model.DeliveredNotification {
	out := make([]*model.DeliveredNotification, 0, len(list))
	for _, n := range list {
		if n.VisibleTo(role) {
			out = append(out, n)
		}
	}
	return out
}

func CountUnread(list []*model.DeliveredNotification) int {
	count := 0
	for _, n := range list {
		if !n.Readed.IsRead() {
			count++
		}
	}
	return count
}

// Visible returns the subset to render: the first pageSize entries, or all of
// them when showAll is set. The input slice is not modified.
func Visible(list []*model.DeliveredNotification, showAll bool, pageSize int) []*model.DeliveredNotification {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if showAll || len(list) <= pageSize {
		return list
	}
	return list[:pageSize]
}
