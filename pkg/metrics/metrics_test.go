package metrics

import (
	"errors"
	"math"
	"testing"
)

func TestCompareIdentical(t *testing.T) {
	ref := []complex128{0, 0.5, 1i, 0.25 + 0.25i, 1, 0.1}

	m, err := Compare(ref, ref)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if m.RMSE != 0 {
		t.Errorf("Expected RMSE 0, got %f", m.RMSE)
	}
	if m.NRMSE != 0 {
		t.Errorf("Expected NRMSE 0, got %f", m.NRMSE)
	}
	if math.Abs(m.SSIM-1) > 1e-9 {
		t.Errorf("Expected SSIM 1, got %f", m.SSIM)
	}
	if m.EntropyDiff != 0 {
		t.Errorf("Expected entropy difference 0, got %f", m.EntropyDiff)
	}
	if m.MI < 10 {
		t.Errorf("Expected large mutual information for identical data, got %f", m.MI)
	}
}

func TestCompareDegradedIsWorse(t *testing.T) {
	n := 64
	ref := make([]complex128, n)
	noisy := make([]complex128, n)
	for i := 0; i < n; i++ {
		v := math.Sin(float64(i) / 5)
		ref[i] = complex(v, 0)
		noisy[i] = complex(v+0.3*math.Cos(float64(i)*1.7), 0)
	}

	same, err := Compare(ref, ref)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	worse, err := Compare(ref, noisy)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if worse.RMSE <= same.RMSE {
		t.Errorf("Expected RMSE to grow, got %f <= %f", worse.RMSE, same.RMSE)
	}
	if worse.NRMSE <= 0 {
		t.Errorf("Expected positive NRMSE, got %f", worse.NRMSE)
	}
	if worse.SSIM >= same.SSIM {
		t.Errorf("Expected SSIM to drop, got %f >= %f", worse.SSIM, same.SSIM)
	}
}

func TestCompareLengthMismatch(t *testing.T) {
	_, err := Compare(make([]complex128, 3), make([]complex128, 4))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}
