package deta

// Updates builds the set of actions applied by Base.Update. Actions of
// the same kind on the same field overwrite earlier ones; actions of
// different kinds on the same field are all sent.
//
//	u := deta.NewUpdates().
//		Set("profile.age", 33).
//		Increment("purchases", 2).
//		Append("likes", "ramen", "jimmy").
//		Delete("profile.hometown")
type Updates struct {
	set       map[string]any
	increment map[string]int
	appends   map[string][]any
	prepends  map[string][]any
	deletes   []string
}

// NewUpdates returns an empty update builder.
func NewUpdates() *Updates {
	return &Updates{}
}

// Set assigns value to the field, creating it if absent.
func (u *Updates) Set(field string, value any) *Updates {
	if u.set == nil {
		u.set = make(map[string]any)
	}

	u.set[field] = value

	return u
}

// Increment adds delta to the numeric field. Delta may be negative.
func (u *Updates) Increment(field string, delta int) *Updates {
	if u.increment == nil {
		u.increment = make(map[string]int)
	}

	u.increment[field] = delta

	return u
}

// Append appends values to the list field.
func (u *Updates) Append(field string, values ...any) *Updates {
	if u.appends == nil {
		u.appends = make(map[string][]any)
	}

	u.appends[field] = values

	return u
}

// Prepend prepends values to the list field.
func (u *Updates) Prepend(field string, values ...any) *Updates {
	if u.prepends == nil {
		u.prepends = make(map[string][]any)
	}

	u.prepends[field] = values

	return u
}

// Delete removes the field from the item.
func (u *Updates) Delete(field string) *Updates {
	u.deletes = append(u.deletes, field)

	return u
}

// updatesPayload is the wire form of an update request.
type updatesPayload struct {
	Set       map[string]any   `json:"set,omitempty"`
	Increment map[string]int   `json:"increment,omitempty"`
	Append    map[string][]any `json:"append,omitempty"`
	Prepend   map[string][]any `json:"prepend,omitempty"`
	Delete    []string         `json:"delete,omitempty"`
}

func (u *Updates) render() updatesPayload {
	return updatesPayload{
		Set:       u.set,
		Increment: u.increment,
		Append:    u.appends,
		Prepend:   u.prepends,
		Delete:    u.deletes,
	}
}
