package spill

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPairSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SpillContainerPair Suite")
}

var _ = Describe("Pair", func() {
	start := time.Date(2013, 2, 13, 9, 0, 0, 0, time.UTC)

	newDef := func(n int) *Release {
		def, err := NewPointRelease("spec", start, Point{Lon: -72.0, Lat: 41.2}, n)
		Expect(err).NotTo(HaveOccurred())
		return def
	}

	It("iterates a single container when uncertainty is off", func() {
		p := NewPair(false)
		p.AddRelease(newDef(5))
		Expect(p.Items()).To(HaveLen(1))
		Expect(p.Items()[0].Uncertain).To(BeFalse())
	})

	It("iterates both containers when uncertainty is on", func() {
		p := NewPair(true)
		p.AddRelease(newDef(5))
		items := p.Items()
		Expect(items).To(HaveLen(2))
		Expect(items[0].Uncertain).To(BeFalse())
		Expect(items[1].Uncertain).To(BeTrue())
	})

	It("drives both branches from the same release definitions", func() {
		p := NewPair(true)
		p.AddRelease(newDef(7))
		for _, c := range p.Items() {
			c.PrepareForModelRun(Fields{})
		}
		p.ReleaseElements(15*time.Minute, start)
		for _, c := range p.Items() {
			Expect(c.NumReleased()).To(Equal(7))
			Expect(c.CurrentTimeStamp()).To(Equal(start))
		}
	})

	It("toggling uncertainty reports a change only when the value flips", func() {
		p := NewPair(false)
		Expect(p.SetUncertain(false)).To(BeFalse())
		Expect(p.SetUncertain(true)).To(BeTrue())
		Expect(p.SetUncertain(true)).To(BeFalse())
		Expect(p.Items()).To(HaveLen(2))
		Expect(p.SetUncertain(false)).To(BeTrue())
		Expect(p.Items()).To(HaveLen(1))
	})

	It("gives a fresh shadow container the existing releases", func() {
		p := NewPair(false)
		p.AddRelease(newDef(3))
		p.SetUncertain(true)
		shadow := p.Items()[1]
		shadow.PrepareForModelRun(Fields{})
		Expect(shadow.ReleaseElements(time.Minute, start)).To(Equal(3))
	})

	It("compares pairs by shape and element-wise array equality", func() {
		a, b := NewPair(false), NewPair(false)
		def := newDef(4)
		a.AddRelease(def)
		b.AddRelease(def)
		for _, c := range append(a.Items(), b.Items()...) {
			c.PrepareForModelRun(Fields{})
		}
		a.ReleaseElements(time.Minute, start)
		b.ReleaseElements(time.Minute, start)
		Expect(a.Equal(b)).To(BeTrue())

		b.Certain().Positions[0].Lon += 0.5
		Expect(a.Equal(b)).To(BeFalse())

		b.Certain().Positions[0].Lon -= 0.5
		b.SetUncertain(true)
		Expect(a.Equal(b)).To(BeFalse())
	})

	It("rewinds every branch", func() {
		p := NewPair(true)
		p.AddRelease(newDef(6))
		for _, c := range p.Items() {
			c.PrepareForModelRun(Fields{})
		}
		p.ReleaseElements(time.Minute, start)
		p.Rewind()
		for _, c := range p.Items() {
			Expect(c.NumReleased()).To(BeZero())
		}
	})
})
