package olb

// NumTags is the number of correlation tags a node owns.
const NumTags = 1 << 16

// A Tag correlates an outstanding request with its reply.
type Tag uint16

// TagPool hands out tags first in, first out. A tag is either in the pool or
// outstanding, never both.
type TagPool struct {
	ring        []Tag
	head        int
	size        int
	outstanding []bool
}

// NewTagPool creates a pool that holds every tag.
func NewTagPool() *TagPool {
	p := &TagPool{
		ring:        make([]Tag, NumTags),
		size:        NumTags,
		outstanding: make([]bool, NumTags),
	}

	for i := range p.ring {
		p.ring[i] = Tag(i)
	}

	return p
}

// Allocate removes the tag at the head of the pool.
func (p *TagPool) Allocate() (Tag, error) {
	if p.size == 0 {
		return 0, &ResourceExhaustedError{Resource: "tags", Capacity: NumTags}
	}

	tag := p.ring[p.head]
	p.head = (p.head + 1) % NumTags
	p.size--
	p.outstanding[tag] = true

	return tag, nil
}

// Release returns an outstanding tag to the tail of the pool.
func (p *TagPool) Release(tag Tag) error {
	if !p.outstanding[tag] {
		return &TagError{Tag: tag, Reason: "released while not outstanding"}
	}

	p.outstanding[tag] = false
	p.ring[(p.head+p.size)%NumTags] = tag
	p.size++

	return nil
}

// IsOutstanding tells if the tag is held by a request.
func (p *TagPool) IsOutstanding(tag Tag) bool {
	return p.outstanding[tag]
}

// Available returns the number of tags in the pool.
func (p *TagPool) Available() int {
	return p.size
}

// Outstanding returns the number of tags held by requests.
func (p *TagPool) Outstanding() int {
	return NumTags - p.size
}
