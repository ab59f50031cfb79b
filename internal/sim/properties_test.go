package sim_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/sim"
)

type stepInput struct {
	dt       float64
	state    sim.State
	gains    control.Gains
	thetaRef float64
	uLimit   float64
}

func randomInputs(n int, seed int64) []stepInput {
	rng := rand.New(rand.NewSource(seed))
	span := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	out := make([]stepInput, n)
	for i := range out {
		out[i] = stepInput{
			dt: span(-0.01, 0.2),
			state: sim.State{
				Theta:  span(-10, 10),
				Omega:  span(-5, 5),
				Integ:  span(-20, 20),
				EPrev:  span(-10, 10),
				Paused: rng.Intn(2) == 0,
			},
			gains:    control.Gains{Kp: span(0, 10), Ki: span(0, 2), Kd: span(0, 5)},
			thetaRef: span(-1, 1),
			uLimit:   span(0, 5),
		}
	}
	return out
}

var _ = Describe("Step", func() {
	inputs := randomInputs(2000, 7)

	It("is deterministic", func() {
		for _, in := range inputs {
			n1, e1, u1 := sim.Step(in.dt, in.state, in.gains, in.thetaRef, in.uLimit)
			n2, e2, u2 := sim.Step(in.dt, in.state, in.gains, in.thetaRef, in.uLimit)
			Expect(n1).To(Equal(n2))
			Expect(math.Float64bits(e1)).To(Equal(math.Float64bits(e2)))
			Expect(math.Float64bits(u1)).To(Equal(math.Float64bits(u2)))
		}
	})

	It("never moves a paused plant", func() {
		for _, in := range inputs {
			in.state.Paused = true
			next, _, _ := sim.Step(in.dt, in.state, in.gains, in.thetaRef, in.uLimit)
			Expect(next.Theta).To(Equal(in.state.Theta))
			Expect(next.Omega).To(Equal(in.state.Omega))
			Expect(next.Paused).To(BeTrue())
		}
	})

	It("keeps the control inside the actuator limit", func() {
		for _, in := range inputs {
			_, _, u := sim.Step(in.dt, in.state, in.gains, in.thetaRef, in.uLimit)
			Expect(math.Abs(u)).To(BeNumerically("<=", in.uLimit))
		}
	})

	It("treats dt = 0 as the minimum step", func() {
		for _, in := range inputs[:200] {
			a, ea, ua := sim.Step(0, in.state, in.gains, in.thetaRef, in.uLimit)
			b, eb, ub := sim.Step(sim.MinDt, in.state, in.gains, in.thetaRef, in.uLimit)
			Expect(a).To(Equal(b))
			Expect(ea).To(Equal(eb))
			Expect(ua).To(Equal(ub))
		}
	})

	It("stores this step's error as the next e_prev", func() {
		for _, in := range inputs[:200] {
			next, e, _ := sim.Step(in.dt, in.state, in.gains, in.thetaRef, in.uLimit)
			Expect(next.EPrev).To(Equal(e))
		}
	})

	It("reproduces the worked example", func() {
		s := sim.State{Theta: 3.0}
		next, e, u := sim.Step(0.05, s, control.Gains{Kp: 2.2, Ki: 0.03, Kd: 0.9}, 0, 3.0)

		Expect(e).To(Equal(-3.0))
		Expect(u).To(Equal(-3.0))
		Expect(next.Theta).To(BeNumerically("~", 3.0, 1e-12))
		Expect(next.Omega).To(BeNumerically("~", -0.1485, 1e-12))
		Expect(next.Integ).To(BeNumerically("~", -0.15, 1e-12))
		Expect(next.EPrev).To(BeNumerically("~", -3.0, 1e-12))
	})
})

var _ = Describe("Rollout", func() {
	gains := control.Heuristic(3.0, 0.05)

	It("never lowers iae when the horizon grows", func() {
		cfg := sim.DefaultRolloutConfig()
		prev := -1.0
		for seconds := 0.0; seconds <= 12.0; seconds += 0.35 {
			cfg.Seconds = seconds
			iae := sim.Rollout(cfg, gains).IAE
			Expect(iae).To(BeNumerically(">=", prev))
			prev = iae
		}
	})

	It("settles a large disturbance with heuristic gains", func() {
		tr := sim.Record(sim.RolloutConfig{Dt: 0.05, Seconds: 20, Theta0: 3.0, ULimit: 3.0}, gains)
		last := tr.Samples[len(tr.Samples)-1]
		Expect(math.Abs(last.Theta)).To(BeNumerically("<", 0.01))
	})

	It("gives identical scores when called concurrently", func() {
		cfg := sim.DefaultRolloutConfig()
		want := sim.Rollout(cfg, gains)

		results := make(chan sim.Metrics, 16)
		for i := 0; i < cap(results); i++ {
			go func() {
				defer GinkgoRecover()
				results <- sim.Rollout(cfg, gains)
			}()
		}
		for i := 0; i < cap(results); i++ {
			Expect(<-results).To(Equal(want))
		}
	})
})
