package control

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/loopsim/internal/dynamo"
)

var _ = Describe("PID", func() {
	var pid *PID

	BeforeEach(func() {
		var err error
		pid, err = NewPID(Gains{Kp: 2, Ki: 0.5, Kd: 0.1, Setpoint: 1, Offset: 3})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should sum offset, proportional, integral and derivative terms", func() {
		u, err := pid.Compute(0, 0.5)
		Expect(err).NotTo(HaveOccurred())

		// err=1: P=2, I=0.5*(1*0.5), D=0.1*(1-0)/0.5
		Expect(u).To(BeNumerically("~", 3+2+0.25+0.2, 1e-12))
		Expect(pid.PrevError()).To(Equal(1.0))
		Expect(pid.Integral()).To(Equal(0.5))
	})

	It("should use the previous error for the derivative", func() {
		_, _ = pid.Compute(0, 0.5)
		u, err := pid.Compute(0.5, 0.5)
		Expect(err).NotTo(HaveOccurred())

		// err=0.5: P=1, integral=0.75 -> I=0.375, D=0.1*(0.5-1)/0.5=-0.1
		Expect(u).To(BeNumerically("~", 3+1+0.375-0.1, 1e-12))
	})

	It("should reject non-positive timesteps", func() {
		for _, dt := range []float64{0, -0.1} {
			_, err := pid.Compute(0, dt)
			Expect(err).To(MatchError(dynamo.ErrInvalidTimestep))
		}
		Expect(pid.Integral()).To(BeZero())
	})

	It("should accumulate the integral as the sum of error times dt", func() {
		measured := []float64{0, 0.2, 0.4, 0.9, 1.3, 1.1}
		dts := []float64{0.1, 0.2, 0.1, 0.05, 0.1, 0.3}

		sum := 0.0
		for i := range measured {
			_, err := pid.Compute(measured[i], dts[i])
			Expect(err).NotTo(HaveOccurred())
			sum += (1 - measured[i]) * dts[i]
		}

		Expect(pid.Integral()).To(BeNumerically("~", sum, 1e-12))
	})

	It("should replay identically from a fresh controller", func() {
		script := func() []float64 {
			p, err := NewPID(Gains{Kp: 1.3, Ki: 0.7, Kd: 0.05, Setpoint: 10})
			Expect(err).NotTo(HaveOccurred())
			out := make([]float64, 0, 100)
			for i := 0; i < 100; i++ {
				u, err := p.Compute(math.Sin(float64(i)*0.1)*5, 0.01)
				Expect(err).NotTo(HaveOccurred())
				out = append(out, u)
			}
			return out
		}

		Expect(script()).To(Equal(script()))
	})

	It("should wind up without bound under sustained error", func() {
		p, err := NewPID(Gains{Ki: 1, Setpoint: 100})
		Expect(err).NotTo(HaveOccurred())

		var last float64
		for i := 1; i <= 1000; i++ {
			last, _ = p.Compute(0, 0.1)
		}

		Expect(p.Integral()).To(BeNumerically("~", 100*0.1*1000, 1e-6))
		Expect(last).To(BeNumerically("~", 10000, 1e-6))
	})

	Context("with output limits", func() {
		It("should clamp the command but keep integrating", func() {
			p, err := NewPID(Gains{Kp: 1, Ki: 1, Setpoint: 100, Limits: &Limits{Min: -5, Max: 5}})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 50; i++ {
				u, err := p.Compute(0, 0.1)
				Expect(err).NotTo(HaveOccurred())
				Expect(u).To(Equal(5.0))
			}
			Expect(p.Integral()).To(BeNumerically("~", 500, 1e-9))
		})

		It("should reject inverted limits", func() {
			_, err := NewPID(Gains{Limits: &Limits{Min: 1, Max: -1}})
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})

	It("should reject non-finite gains", func() {
		_, err := NewPID(Gains{Kp: math.NaN()})
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})
})

var _ = Describe("Constant", func() {
	It("should ignore the measurement", func() {
		c := NewConstant(30)
		for _, y := range []float64{-1e6, 0, 320, math.Inf(1)} {
			u, err := c.Compute(y, 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(Equal(30.0))
		}
	})
})
