package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mmst/internal/dynamo"
	"github.com/san-kum/mmst/internal/hamiltonian"
	"github.com/san-kum/mmst/internal/mapping"
	"github.com/san-kum/mmst/internal/nuclear"
	"github.com/san-kum/mmst/internal/sim"
)

var _ = Describe("Ensemble", func() {
	var (
		cfg    sim.Config
		engine *nuclear.Harmonic
	)

	BeforeEach(func() {
		cfg = sim.Config{
			StepSize:  0.05,
			Provider:  hamiltonian.NewSpinBoson(0.2, 0.5, []float64{0.4}),
			NumStates: 2,
			Scheme:    "verlet",
			Sampling:  mapping.Sampled,
		}
		var err error
		engine, err = nuclear.NewHarmonicChain([]float64{0.2}, []float64{0}, 1, 0)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an empty ensemble", func() {
		_, err := sim.NewEnsemble(cfg, engine, 0, 1)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	})

	It("is reproducible for the same seeds", func() {
		ens, err := sim.NewEnsemble(cfg, engine, 4, 100)
		Expect(err).NotTo(HaveOccurred())

		a, err := ens.Run(context.Background(), 200, 20)
		Expect(err).NotTo(HaveOccurred())
		b, err := ens.Run(context.Background(), 200, 20)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Times).To(Equal(b.Times))
		Expect(a.Populations).To(Equal(b.Populations))
		Expect(a.Times).To(HaveLen(11))
		Expect(a.Times[len(a.Times)-1]).To(BeNumerically("~", 10, 1e-9))
	})

	It("conserves the averaged total population", func() {
		ens, err := sim.NewEnsemble(cfg, engine, 3, 7)
		Expect(err).NotTo(HaveOccurred())

		res, err := ens.Run(context.Background(), 100, 25)
		Expect(err).NotTo(HaveOccurred())
		for _, pops := range res.Populations {
			Expect(pops[0] + pops[1]).To(BeNumerically("~", 1, 1e-9))
		}
		Expect(res.Final).To(HaveLen(3))
		Expect(res.Final[0].Positions).NotTo(Equal(res.Final[1].Positions))
	})

	It("leaves the template engine untouched", func() {
		ens, err := sim.NewEnsemble(cfg, engine, 2, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = ens.Run(context.Background(), 50, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.Positions()).To(Equal([]float64{0.2}))
	})

	It("rejects fewer steps than the multistep startup needs", func() {
		cfg.Scheme = "gear6"
		ens, err := sim.NewEnsemble(cfg, engine, 2, 0)
		Expect(err).NotTo(HaveOccurred())

		_, err = ens.Run(context.Background(), 2, 1)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())

		res, err := ens.Run(context.Background(), 5, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Times[len(res.Times)-1]).To(BeNumerically("~", 5*cfg.StepSize, 1e-12))
	})

	It("stops when the context is cancelled", func() {
		ens, err := sim.NewEnsemble(cfg, engine, 2, 0)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = ens.Run(ctx, 100, 10)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})

var _ = Describe("Trajectory", func() {
	var (
		traj   *sim.Trajectory
		engine *nuclear.Free
	)

	newTrajectory := func(scheme string) {
		state, err := nuclear.NewState([]float64{-8}, []float64{20.0 / 2000}, []float64{2000}, 1)
		Expect(err).NotTo(HaveOccurred())
		engine = nuclear.NewFree(state)

		traj, err = sim.New(sim.Config{
			StepSize:  1,
			Provider:  hamiltonian.NewTullySimple(),
			NumStates: 2,
			Scheme:    scheme,
		}, engine)
		Expect(err).NotTo(HaveOccurred())
		Expect(traj.Initialize()).To(Succeed())
	}

	DescribeTable("crossing Tully's avoided crossing",
		func(scheme string) {
			newTrajectory(scheme)
			Expect(traj.Startup()).To(Succeed())
			Expect(traj.Step(1600 - traj.Steps())).To(Succeed())

			Expect(engine.Positions()[0]).To(BeNumerically(">", 5))
			Expect(traj.EnergyDrift()).To(BeNumerically("<", 1e-3))
			Expect(traj.ActionDrift()).To(BeNumerically("<", 1e-8))

			pops := traj.Populations()
			Expect(pops[0] + pops[1]).To(BeNumerically("~", 1, 1e-8))
			Expect(pops[1]).To(BeNumerically(">", 0.01))
			Expect(pops[1]).To(BeNumerically("<", 0.99))
		},
		Entry("verlet", "verlet"),
		Entry("rk4", "rk4"),
		Entry("gear6", "gear6"),
	)

	It("reports time as steps times the step size", func() {
		newTrajectory("rk4")
		Expect(traj.Step(7)).To(Succeed())
		Expect(traj.Steps()).To(Equal(7))
		Expect(traj.Time()).To(Equal(7.0))
		Expect(traj.Sample().Step).To(Equal(7))
	})

	It("hands out copies of its state", func() {
		newTrajectory("verlet")
		m := traj.Mapping()
		m.Q[0] = math.NaN()
		snap := traj.Snapshot()
		snap[0] = 99
		Expect(traj.Step(1)).To(Succeed())
		Expect(traj.Snapshot().IsValid()).To(BeTrue())
	})
})
