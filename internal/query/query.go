// Package query composes the owner-scoped task listing query from an
// allow-listed set of filter and sort options.
//
// Filter values only ever travel as bound parameters. The sort column and
// direction are the only caller-influenced parts of the query text, and both
// are chosen from fixed tables below.
package query

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
)

// Recognized query-string keys.
const (
	ParamDueDate       = "dueDate"
	ParamDueDateBefore = "dueDateBefore"
	ParamDueDateAfter  = "dueDateAfter"
	ParamStatus        = "status"
	ParamPriority      = "priority"
	ParamSortBy        = "sortBy"
	ParamSortOrder     = "sortOrder"
)

const dateOnly = "2006-01-02"

// Filter narrows an owner's tasks. Nil fields impose no constraint.
// DueDate matches one instant exactly; DueDay matches any time on that UTC
// calendar day and is what a bare YYYY-MM-DD dueDate parses to.
type Filter struct {
	DueDate       *time.Time
	DueDay        *time.Time
	DueDateBefore *time.Time
	DueDateAfter  *time.Time
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
}

type SortField string

const (
	SortDefault   SortField = ""
	SortCreatedAt SortField = "created_at"
	SortPriority  SortField = "priority"
	SortDueDate   SortField = "due_date"
	SortTitle     SortField = "title"
)

type SortOrder string

const (
	Asc  SortOrder = "ASC"
	Desc SortOrder = "DESC"
)

type Sort struct {
	By    SortField
	Order SortOrder
}

// DefaultSort is the ordering used when the caller asks for none.
var DefaultSort = Sort{By: SortDueDate, Order: Asc}

// orderExprs maps each allowed sort field to the SQL placed after ORDER BY.
// %s receives the direction.
var orderExprs = map[SortField]string{
	SortCreatedAt: "created_at %s",
	SortTitle:     "title %s",
	SortDueDate:   "(due_date IS NULL) ASC, due_date %s",
	SortPriority: "CASE priority WHEN '" + string(models.PriorityLow) + "' THEN 1" +
		" WHEN '" + string(models.PriorityMedium) + "' THEN 2" +
		" WHEN '" + string(models.PriorityHigh) + "' THEN 3 ELSE 0 END %s",
}

const taskColumns = "id, owner_id, title, description, due_date, status, priority, created_at, updated_at"

// ParseSort normalizes raw sortBy/sortOrder input. An empty sortBy selects the
// default ordering; any other value outside the allow-list becomes
// created_at. Any order other than asc/desc becomes ASC.
func ParseSort(by, order string) Sort {
	by = strings.TrimSpace(by)
	if by == "" {
		s := DefaultSort
		if o, ok := parseOrder(order); ok {
			s.Order = o
		}
		return s
	}

	s := Sort{By: SortCreatedAt, Order: Asc}
	if _, ok := orderExprs[SortField(by)]; ok {
		s.By = SortField(by)
	}
	if o, ok := parseOrder(order); ok {
		s.Order = o
	}
	return s
}

func parseOrder(order string) (SortOrder, bool) {
	switch SortOrder(strings.ToUpper(strings.TrimSpace(order))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// normalize applies the same fallbacks as ParseSort to a Sort built in code.
func (s Sort) normalize() Sort {
	return ParseSort(string(s.By), string(s.Order))
}

// ParseFilter reads the recognized filter keys from a query string. Unknown
// keys are ignored; malformed values are rejected with ErrInvalidInput.
func ParseFilter(values url.Values) (Filter, error) {
	var f Filter
	var err error

	if f.DueDate, err = parseDateParam(values, ParamDueDate); err != nil {
		return Filter{}, err
	}
	if f.DueDate != nil && isDateOnly(values.Get(ParamDueDate)) {
		f.DueDay, f.DueDate = f.DueDate, nil
	}
	if f.DueDateBefore, err = parseDateParam(values, ParamDueDateBefore); err != nil {
		return Filter{}, err
	}
	if f.DueDateAfter, err = parseDateParam(values, ParamDueDateAfter); err != nil {
		return Filter{}, err
	}

	if v := strings.TrimSpace(values.Get(ParamStatus)); v != "" {
		status, err := models.ParseTaskStatus(v)
		if err != nil {
			return Filter{}, err
		}
		f.Status = &status
	}
	if v := strings.TrimSpace(values.Get(ParamPriority)); v != "" {
		priority, err := models.ParseTaskPriority(v)
		if err != nil {
			return Filter{}, err
		}
		f.Priority = &priority
	}

	return f, nil
}

func parseDateParam(values url.Values, key string) (*time.Time, error) {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return nil, nil
	}
	t, err := ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrInvalidInput, key, err)
	}
	return &t, nil
}

func isDateOnly(v string) bool {
	_, err := time.Parse(dateOnly, strings.TrimSpace(v))
	return err == nil
}

// ParseDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date (UTC
// midnight) and returns it in stored form.
func ParseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return models.NormalizeTime(t), nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q", v)
	}
	return t.UTC(), nil
}

// ComposeTaskQuery returns the SELECT for ownerID's tasks matching every
// present filter, in the requested order. Placeholders are '?' and args are
// listed in the order they appear in the text.
func ComposeTaskQuery(ownerID uuid.UUID, f Filter, s Sort) (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{ownerID}

	b.WriteString("SELECT " + taskColumns + " FROM tasks WHERE owner_id = ?")

	if f.DueDate != nil {
		b.WriteString(" AND due_date = ?")
		args = append(args, models.NormalizeTime(*f.DueDate))
	}
	if f.DueDay != nil {
		day := f.DueDay.UTC().Truncate(24 * time.Hour)
		b.WriteString(" AND due_date >= ? AND due_date < ?")
		args = append(args, day, day.Add(24*time.Hour))
	}
	if f.Status != nil {
		b.WriteString(" AND status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Priority != nil {
		b.WriteString(" AND priority = ?")
		args = append(args, string(*f.Priority))
	}
	if f.DueDateBefore != nil {
		b.WriteString(" AND due_date < ?")
		args = append(args, models.NormalizeTime(*f.DueDateBefore))
	}
	if f.DueDateAfter != nil {
		b.WriteString(" AND due_date > ?")
		args = append(args, models.NormalizeTime(*f.DueDateAfter))
	}

	s = s.normalize()
	b.WriteString(" ORDER BY ")
	b.WriteString(fmt.Sprintf(orderExprs[s.By], s.Order))
	b.WriteString(", id ASC")

	return b.String(), args
}
