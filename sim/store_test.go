package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Store", func() {
	var (
		mockCtrl *gomock.Controller
		a, b     *Signal
		store    *Store
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		a = NewSignal("a", 1, 0)
		b = NewSignal("b", 4, 3)
		store = NewStore([]*Signal{a, b})
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should read reset values before any write", func() {
		Expect(store.Read(a)).To(Equal(uint64(0)))
		Expect(store.Read(b)).To(Equal(uint64(3)))
	})

	It("should not expose a written value before commit", func() {
		store.Write(a, 1)

		Expect(store.Read(a)).To(Equal(uint64(0)))
	})

	It("should commit pending writes", func() {
		store.Write(a, 1)
		store.Write(b, 5)

		changes := store.Commit(7)

		Expect(changes).To(Equal([]SignalChange{
			{Signal: a, Time: 7, Old: 0, New: 1},
			{Signal: b, Time: 7, Old: 3, New: 5},
		}))
		Expect(store.Read(a)).To(Equal(uint64(1)))
		Expect(store.Read(b)).To(Equal(uint64(5)))
	})

	It("should return no changes when committing twice in a row", func() {
		store.Write(a, 1)
		store.Commit(0)

		Expect(store.Commit(0)).To(BeEmpty())
	})

	It("should let the last write win within one delta cycle", func() {
		store.Write(b, 1)
		store.Write(b, 2)

		changes := store.Commit(0)

		Expect(changes).To(HaveLen(1))
		Expect(changes[0].New).To(Equal(uint64(2)))
	})

	It("should not report a write that matches the committed value", func() {
		store.Write(b, 3)

		Expect(store.Commit(0)).To(BeEmpty())
	})

	It("should truncate writes to the signal width", func() {
		store.Write(b, 0xff)

		changes := store.Commit(0)

		Expect(changes[0].New).To(Equal(uint64(0xf)))
	})

	It("should reject triggers on foreign signals", func() {
		foreign := NewSignal("foreign", 1, 0)
		proc := NewMockProcess(mockCtrl)

		err := store.AddTrigger(proc, foreign, Anyedge)

		Expect(err).To(BeAssignableToTypeOf(&UnknownSignalError{}))
	})

	It("should wake a waiting process on any change", func() {
		proc := NewMockProcess(mockCtrl)
		Expect(store.AddTrigger(proc, a, Anyedge)).To(Succeed())

		store.Write(a, 1)
		changes := store.Commit(0)

		Expect(store.Wake(changes[0])).To(Equal([]Process{proc}))
	})

	It("should keep anyedge triggers registered after they fire", func() {
		proc := NewMockProcess(mockCtrl)
		Expect(store.AddTrigger(proc, a, Anyedge)).To(Succeed())

		store.Write(a, 1)
		store.Wake(store.Commit(0)[0])

		store.Write(a, 0)
		woken := store.Wake(store.Commit(0)[0])

		Expect(woken).To(Equal([]Process{proc}))
	})

	It("should clear edge triggers once they fire", func() {
		proc := NewMockProcess(mockCtrl)
		Expect(store.AddTrigger(proc, a, Posedge)).To(Succeed())

		store.Write(a, 1)
		Expect(store.Wake(store.Commit(0)[0])).To(HaveLen(1))

		store.Write(a, 0)
		store.Wake(store.Commit(0)[0])
		store.Write(a, 1)
		woken := store.Wake(store.Commit(0)[0])

		Expect(woken).To(BeEmpty())
	})

	It("should not wake a posedge trigger on a falling edge", func() {
		proc := NewMockProcess(mockCtrl)
		store.Write(a, 1)
		store.Commit(0)

		Expect(store.AddTrigger(proc, a, Posedge)).To(Succeed())

		store.Write(a, 0)
		woken := store.Wake(store.Commit(0)[0])

		Expect(woken).To(BeEmpty())
	})

	It("should replace the condition when a process re-registers", func() {
		proc := NewMockProcess(mockCtrl)
		Expect(store.AddTrigger(proc, a, Posedge)).To(Succeed())
		Expect(store.AddTrigger(proc, a, Negedge)).To(Succeed())

		store.Write(a, 1)
		woken := store.Wake(store.Commit(0)[0])

		Expect(woken).To(BeEmpty())
	})

	It("should tolerate removing an absent trigger", func() {
		proc := NewMockProcess(mockCtrl)

		store.RemoveTrigger(proc, a)
	})

	It("should drop triggers and pending writes on reset", func() {
		proc := NewMockProcess(mockCtrl)
		Expect(store.AddTrigger(proc, a, Anyedge)).To(Succeed())
		store.Write(a, 1)
		store.Write(b, 9)
		store.Commit(0)

		store.Reset()

		Expect(store.Read(a)).To(Equal(uint64(0)))
		Expect(store.Read(b)).To(Equal(uint64(3)))
		Expect(store.Commit(0)).To(BeEmpty())

		store.Write(a, 1)
		Expect(store.Wake(store.Commit(0)[0])).To(BeEmpty())
	})
})
