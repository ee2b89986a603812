package pagination

// Pagination holds limit/offset query parameters for list endpoints.
type Pagination struct {
	Limit  int `form:"limit,default=50" validate:"gte=1,lte=250"` // Min 1, Max 250
	Offset int `form:"offset,default=0" validate:"gte=0"`
}

// Normalize clamps the parameters into their allowed ranges.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 250 {
		p.Limit = 250
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageInfo describes the page that was returned relative to the full set.
type PageInfo struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

// BuildPageInfo derives page metadata from the total row count.
func BuildPageInfo(total int64, p Pagination) PageInfo {
	p = p.Normalize()
	return PageInfo{
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: int64(p.Offset+p.Limit) < total,
	}
}
