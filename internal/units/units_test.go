package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		units    string
		expected float64
	}{
		{"10 m/s to mph", 10.0, MPH, 22.3694},
		{"10 m/s to kmph", 10.0, KMPH, 36.0},
		{"10 m/s to kph", 10.0, KPH, 36.0},
		{"10 m/s to mps", 10.0, MPS, 10.0},
		{"unknown units default to mps", 10.0, "unknown", 10.0},
		{"0 m/s to mph", 0.0, MPH, 0.0},
		{"highway speed 31.29 m/s to mph", 31.29, MPH, 70.0},
		{"city speed 13.89 m/s to kmph", 13.89, KMPH, 50.004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedMPS, tt.units)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, unit := range ValidUnits {
		if !IsValid(unit) {
			t.Errorf("IsValid(%s) = false, want true", unit)
		}
	}
	if IsValid("furlongs") {
		t.Error("IsValid(furlongs) = true, want false")
	}
	if IsValid("") {
		t.Error("IsValid(\"\") = true, want false")
	}
}

func TestSpeedLabel(t *testing.T) {
	tests := []struct {
		units    string
		expected string
	}{
		{MPS, "speed (m/s)"},
		{MPH, "speed (mph)"},
		{KMPH, "speed (km/h)"},
		{KPH, "speed (km/h)"},
		{"unknown", "speed (m/s)"},
	}
	for _, tt := range tests {
		if got := SpeedLabel(tt.units); got != tt.expected {
			t.Errorf("SpeedLabel(%s) = %q, want %q", tt.units, got, tt.expected)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		speedMPS float64
		units    string
		expected string
	}{
		{10.0, MPS, "10.0 m/s"},
		{10.0, KMPH, "36.0 km/h"},
		{10.0, MPH, "22.4 mph"},
		{10.0, "unknown", "10.0 m/s"},
	}
	for _, tt := range tests {
		if got := FormatSpeed(tt.speedMPS, tt.units); got != tt.expected {
			t.Errorf("FormatSpeed(%f, %s) = %q, want %q", tt.speedMPS, tt.units, got, tt.expected)
		}
	}
}
