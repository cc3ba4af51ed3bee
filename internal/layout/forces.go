package layout

import "math"

// The force functions below run with s.mu held. Each adds to node velocities
// except applyCenter, which translates positions directly.

// applyLinks pulls linked nodes toward LinkDistance. Links touching
// low-degree nodes are stiffer, and the correction is split by degree so hubs
// move less.
func (s *Simulation) applyLinks() {
	for _, sp := range s.springs {
		src, dst := &s.bodies[sp.source], &s.bodies[sp.target]

		x := dst.x + dst.vx - src.x - src.vx
		if x == 0 {
			x = s.jiggle()
		}
		y := dst.y + dst.vy - src.y - src.vy
		if y == 0 {
			y = s.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - s.cfg.LinkDistance) / l * s.alpha * sp.strength
		x *= l
		y *= l

		dst.vx -= x * sp.bias
		dst.vy -= y * sp.bias
		src.vx += x * (1 - sp.bias)
		src.vy += y * (1 - sp.bias)
	}
}

// applyCharge applies pairwise repulsion, falling off with squared distance.
func (s *Simulation) applyCharge() {
	const distanceMin2 = 1.0

	for i := range s.bodies {
		n := &s.bodies[i]
		for j := range s.bodies {
			if i == j {
				continue
			}
			o := &s.bodies[j]
			x := o.x - n.x
			y := o.y - n.y
			l := x*x + y*y
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			w := s.cfg.ChargeStrength * s.alpha / l
			n.vx += x * w
			n.vy += y * w
		}
	}
}

// applyCenter shifts every node so the centroid moves toward the viewport centre.
func (s *Simulation) applyCenter() {
	if len(s.bodies) == 0 {
		return
	}
	var sx, sy float64
	for _, b := range s.bodies {
		sx += b.x
		sy += b.y
	}
	n := float64(len(s.bodies))
	sx = (sx/n - s.cfg.Width/2) * s.cfg.CenterStrength
	sy = (sy/n - s.cfg.Height/2) * s.cfg.CenterStrength
	for i := range s.bodies {
		s.bodies[i].x -= sx
		s.bodies[i].y -= sy
	}
}

// applyCollide pushes apart nodes whose padded circles overlap. Larger nodes
// are displaced less.
func (s *Simulation) applyCollide() {
	pad := s.cfg.CollidePadding
	for i := range s.bodies {
		n := &s.bodies[i]
		ri := n.radius + pad
		ri2 := ri * ri
		xi := n.x + n.vx
		yi := n.y + n.vy

		for j := i + 1; j < len(s.bodies); j++ {
			o := &s.bodies[j]
			rj := o.radius + pad
			r := ri + rj
			x := xi - o.x - o.vx
			y := yi - o.y - o.vy
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			l = (r - l) / l
			x *= l
			y *= l
			rj2 := rj * rj
			share := rj2 / (ri2 + rj2)
			n.vx += x * share
			n.vy += y * share
			o.vx -= x * (1 - share)
			o.vy -= y * (1 - share)
		}
	}
}
