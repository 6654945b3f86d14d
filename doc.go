// Package osrevk is a Vulkan render backend. It loads the Vulkan runtime,
// picks a GPU that can present to a window, builds a swapchain with a
// pre-recorded triangle pipeline and drives the acquire, submit and present
// cycle behind a small pass and batch API:
//
//	b := osrevk.New(driver, osrevk.DefaultConfig())
//	if err := b.Create(window); err != nil {
//		return err
//	}
//	defer b.Destroy()
//
//	b.BeginPass("RenderPass")
//	b.BeginRenderBatch("b1")
//	b.SetMatrix(osrevk.Model, model)
//	b.EndRenderBatch()
//	b.EndPass()
//
// The GPU is reached through the hal interfaces; hal/vkdriver implements
// them with vulkan-go and internal/fakegpu in memory for tests.
package osrevk
