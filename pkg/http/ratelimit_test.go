package http

import (
	"context"
	"testing"
	"time"
)

func TestHostDelayLimiter(t *testing.T) {
	limiter := NewHostDelayLimiter(80 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.Wait(ctx, "a.example"); err != nil {
		t.Fatalf("first Wait() error: %v", err)
	}
	if err := limiter.Wait(ctx, "b.example"); err != nil {
		t.Fatalf("other host Wait() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 60*time.Millisecond {
		t.Errorf("first requests to distinct hosts waited %v", elapsed)
	}

	if err := limiter.Wait(ctx, "a.example"); err != nil {
		t.Fatalf("second Wait() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("second request to same host waited only %v", elapsed)
	}
}

func TestHostDelayLimiterContextCanceled(t *testing.T) {
	limiter := NewHostDelayLimiter(time.Hour)
	_ = limiter.Wait(context.Background(), "a.example")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "a.example"); err == nil {
		t.Error("Wait() should return the context error")
	}
}

func TestNoOpRateLimiter(t *testing.T) {
	limiter := NewNoOpRateLimiter()
	if err := limiter.Wait(context.Background(), "any"); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "any"); err == nil {
		t.Error("Wait() on canceled context should fail")
	}
}
