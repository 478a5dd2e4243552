package credential

import "testing"

func TestNewStoreDefaultsServiceName(t *testing.T) {
	if got := NewStore("").service; got != DefaultService {
		t.Errorf("service = %q, want %q", got, DefaultService)
	}
	if got := NewStore("axora-staging").service; got != "axora-staging" {
		t.Errorf("service = %q, want axora-staging", got)
	}
}
