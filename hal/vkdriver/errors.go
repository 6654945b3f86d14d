package vkdriver

import (
	"fmt"
	"runtime"
	"strings"

	vk "github.com/vulkan-go/vulkan"
)

// newError wraps a failed result with the calling function, nil on success.
func newError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("vulkan: %w (%d)", vk.Error(ret), ret)
	}
	name := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
	}
	return fmt.Errorf("vulkan: %w (%d) in %s", vk.Error(ret), ret, name)
}

// safeString returns s null-terminated for the C side.
func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
