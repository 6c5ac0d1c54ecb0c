package olb

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TagPool", func() {
	var pool *TagPool

	BeforeEach(func() {
		pool = NewTagPool()
	})

	It("should start full", func() {
		Expect(pool.Available()).To(Equal(NumTags))
		Expect(pool.Outstanding()).To(Equal(0))
	})

	It("should hand out tags from the head", func() {
		t0, _ := pool.Allocate()
		t1, _ := pool.Allocate()

		Expect(t0).To(Equal(Tag(0)))
		Expect(t1).To(Equal(Tag(1)))
		Expect(pool.IsOutstanding(t0)).To(BeTrue())
		Expect(pool.Outstanding()).To(Equal(2))
	})

	It("should be exhausted after all tags are allocated", func() {
		seen := make(map[Tag]bool)

		for i := 0; i < NumTags; i++ {
			tag, err := pool.Allocate()
			Expect(err).NotTo(HaveOccurred())
			seen[tag] = true
		}

		Expect(seen).To(HaveLen(NumTags))

		_, err := pool.Allocate()
		Expect(errors.Is(err, ErrResourceExhausted)).To(BeTrue())

		var exhausted *ResourceExhaustedError
		Expect(errors.As(err, &exhausted)).To(BeTrue())
		Expect(exhausted.Capacity).To(Equal(NumTags))
	})

	It("should reuse a released tag right away", func() {
		for i := 0; i < NumTags; i++ {
			_, err := pool.Allocate()
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(pool.Release(42)).To(Succeed())
		Expect(pool.Available()).To(Equal(1))

		tag, err := pool.Allocate()
		Expect(err).NotTo(HaveOccurred())
		Expect(tag).To(Equal(Tag(42)))
	})

	It("should return released tags to the tail", func() {
		t0, _ := pool.Allocate()
		Expect(pool.Release(t0)).To(Succeed())

		next, _ := pool.Allocate()
		Expect(next).To(Equal(Tag(1)))
	})

	It("should reject a double release", func() {
		tag, _ := pool.Allocate()
		Expect(pool.Release(tag)).To(Succeed())

		err := pool.Release(tag)

		var tagErr *TagError
		Expect(errors.As(err, &tagErr)).To(BeTrue())
		Expect(tagErr.Tag).To(Equal(tag))
		Expect(pool.Available()).To(Equal(NumTags))
	})

	It("should reject releasing a tag that was never allocated", func() {
		Expect(pool.Release(7)).NotTo(Succeed())
	})
})
