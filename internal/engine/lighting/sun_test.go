package lighting

import "testing"

func TestSunDirection(t *testing.T) {
	tests := []struct {
		name               string
		azimuth, elevation float32
		x, y, z            float32
	}{
		{"horizon +Z", 0, 0, 0, 0, 1},
		{"horizon +X", 90, 0, 1, 0, 0},
		{"zenith", 123, 90, 0, 1, 0},
	}

	const eps = 1e-6
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := SunDirection(tt.azimuth, tt.elevation)
			if abs(d.X-tt.x) > eps || abs(d.Y-tt.y) > eps || abs(d.Z-tt.z) > eps {
				t.Errorf("SunDirection(%v, %v) = %+v, want (%v, %v, %v)", tt.azimuth, tt.elevation, d, tt.x, tt.y, tt.z)
			}
		})
	}
}

func TestSun_DirectionIsUnit(t *testing.T) {
	d := DefaultSun().Direction()
	if l := d.Length(); abs(l-1) > 1e-6 {
		t.Errorf("length = %v, want 1", l)
	}
	if d.Y <= 0 {
		t.Errorf("sun below horizon: %+v", d)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
