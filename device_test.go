package osrevk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/osrevk/hal"
	"github.com/andewx/osrevk/internal/fakegpu"
)

var (
	graphicsFamily = hal.QueueFamily{Flags: vk.QueueFlags(vk.QueueGraphicsBit), Count: 1}
	computeFamily  = hal.QueueFamily{Flags: vk.QueueFlags(vk.QueueComputeBit), Count: 1}
)

func TestSelectQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []hal.QueueFamily
		present  []bool
		want     QueueFamilySelection
	}{
		{
			name:     "combined",
			families: []hal.QueueFamily{graphicsFamily},
			present:  []bool{true},
			want:     QueueFamilySelection{Graphics: 0, Present: 0},
		},
		{
			name:     "combined family preferred over first graphics",
			families: []hal.QueueFamily{graphicsFamily, computeFamily, graphicsFamily},
			present:  []bool{false, true, true},
			want:     QueueFamilySelection{Graphics: 2, Present: 2},
		},
		{
			name:     "separate",
			families: []hal.QueueFamily{computeFamily, graphicsFamily},
			present:  []bool{true, false},
			want:     QueueFamilySelection{Graphics: 1, Present: 0},
		},
		{
			name:     "no present",
			families: []hal.QueueFamily{graphicsFamily},
			present:  []bool{false},
			want:     QueueFamilySelection{Graphics: 0, Present: NoQueueFamily},
		},
		{
			name:     "no graphics",
			families: []hal.QueueFamily{computeFamily},
			present:  []bool{true},
			want:     QueueFamilySelection{Graphics: NoQueueFamily, Present: 0},
		},
		{
			name:     "graphics family without queues",
			families: []hal.QueueFamily{{Flags: vk.QueueFlags(vk.QueueGraphicsBit)}},
			present:  []bool{true},
			want:     QueueFamilySelection{Graphics: NoQueueFamily, Present: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectQueueFamilies(tt.families, tt.present)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Graphics != NoQueueFamily && tt.want.Present != NoQueueFamily, got.Valid())
		})
	}
}

func TestQueueDescriptors(t *testing.T) {
	combined := QueueFamilySelection{Graphics: 1, Present: 1}
	assert.True(t, combined.Combined())
	assert.Equal(t, []hal.QueueDescriptor{{Family: 1, Priorities: []float32{1}}}, combined.queueDescriptors())

	separate := QueueFamilySelection{Graphics: 0, Present: 2}
	assert.False(t, separate.Combined())
	descs := separate.queueDescriptors()
	require.Len(t, descs, 2)
	assert.EqualValues(t, 2, descs[1].Family)
}

// selectOn creates an instance and surface on d and runs the selector.
func selectOn(t *testing.T, d *fakegpu.Driver, required ...string) (*PhysicalDeviceCandidate, QueueFamilySelection, error) {
	t.Helper()
	inst, err := d.CreateInstance(&hal.InstanceDescriptor{})
	require.NoError(t, err)
	t.Cleanup(inst.Destroy)
	surface, err := inst.CreateSurface(testWindow())
	require.NoError(t, err)
	t.Cleanup(surface.Destroy)
	return SelectDevice(inst, surface, required, discardLogger())
}

func TestSelectDeviceSkipsUnsuitable(t *testing.T) {
	noSwapchain := fakegpu.DefaultGPU()
	noSwapchain.Props.Name = "no swapchain"
	noSwapchain.Extensions = nil

	noPresent := fakegpu.DefaultGPU()
	noPresent.Props.Name = "no present"
	noPresent.PresentSupport = []bool{false}

	old := fakegpu.DefaultGPU()
	old.Props.Name = "old"
	old.Props.APIVersion = 0
	old.Props.MaxImageDimension2D = 2048

	computeOnly := fakegpu.DefaultGPU()
	computeOnly.Props.Name = "compute only"
	computeOnly.Families = []hal.QueueFamily{computeFamily}

	good := fakegpu.DefaultGPU()
	good.Props.Name = "good"

	d := fakegpu.New()
	d.GPUs = []*fakegpu.GPU{noSwapchain, noPresent, old, computeOnly, good}

	c, sel, err := selectOn(t, d, "VK_KHR_swapchain")
	require.NoError(t, err)
	assert.Equal(t, "good", c.Properties.Name)
	assert.Equal(t, QueueFamilySelection{Graphics: 0, Present: 0}, sel)
	assert.Equal(t, []bool{true}, c.PresentSupport)
}

func TestSelectDeviceLargeImageLegacyDevice(t *testing.T) {
	g := fakegpu.DefaultGPU()
	g.Props.APIVersion = 0
	g.Props.MaxImageDimension2D = 4096
	d := fakegpu.New()
	d.GPUs = []*fakegpu.GPU{g}

	_, _, err := selectOn(t, d, "VK_KHR_swapchain")
	assert.NoError(t, err)
}

func TestSelectDeviceSeparateFamilies(t *testing.T) {
	d := fakegpu.New()
	d.GPUs = []*fakegpu.GPU{separateFamiliesGPU()}

	_, sel, err := selectOn(t, d, "VK_KHR_swapchain")
	require.NoError(t, err)
	assert.Equal(t, QueueFamilySelection{Graphics: 0, Present: 1}, sel)
}

func TestSelectDeviceFailures(t *testing.T) {
	d := fakegpu.New()
	d.GPUs = nil
	_, sel, err := selectOn(t, d)
	assert.ErrorIs(t, err, ErrDeviceSelection)
	assert.False(t, sel.Valid())

	d = fakegpu.New()
	d.GPUs[0].Extensions = nil
	_, _, err = selectOn(t, d, "VK_KHR_swapchain")
	assert.ErrorIs(t, err, ErrDeviceSelection)

	d = fakegpu.New()
	d.FailNext("EnumeratePhysicalDevices", nil)
	_, _, err = selectOn(t, d)
	assert.ErrorIs(t, err, ErrDeviceSelection)
	assert.ErrorIs(t, err, fakegpu.ErrInjected)

	d = fakegpu.New()
	d.FailNext("DeviceExtensions", nil)
	_, _, err = selectOn(t, d)
	assert.ErrorIs(t, err, ErrDeviceSelection)
	assert.ErrorIs(t, err, fakegpu.ErrInjected, "query failure is reported")
}

func TestCreateLogicalDeviceSeparateQueues(t *testing.T) {
	d := fakegpu.New()
	d.GPUs = []*fakegpu.GPU{separateFamiliesGPU()}
	c, sel, err := selectOn(t, d, "VK_KHR_swapchain")
	require.NoError(t, err)

	dev, err := createLogicalDevice(c, sel, []string{"VK_KHR_swapchain"}, nil)
	require.NoError(t, err)
	defer dev.destroy()

	assert.EqualValues(t, 0, dev.Graphics.Family())
	assert.EqualValues(t, 1, dev.Present.Family())
	assert.Len(t, d.DeviceDesc.Queues, 2)
	require.NoError(t, dev.waitIdle())

	dev.destroy()
	dev.destroy()
	assert.Zero(t, d.LiveKind("device"))
	assert.Zero(t, d.DoubleDestroys())
}
