package loader

// ExportedSymbols are looked up directly in the library.
var ExportedSymbols = []Symbol{
	{Name: "vkGetInstanceProcAddr"},
}

// GlobalSymbols are resolved through vkGetInstanceProcAddr with a null instance.
var GlobalSymbols = []Symbol{
	{Name: "vkCreateInstance"},
	{Name: "vkEnumerateInstanceExtensionProperties"},
	{Name: "vkEnumerateInstanceLayerProperties"},
	{Name: "vkEnumerateInstanceVersion", Optional: true},
}

// InstanceSymbols are resolved against a created instance.
var InstanceSymbols = []Symbol{
	{Name: "vkDestroyInstance"},
	{Name: "vkEnumeratePhysicalDevices"},
	{Name: "vkGetPhysicalDeviceProperties"},
	{Name: "vkGetPhysicalDeviceQueueFamilyProperties"},
	{Name: "vkEnumerateDeviceExtensionProperties"},
	{Name: "vkCreateDevice"},
	{Name: "vkGetDeviceProcAddr"},
	{Name: "vkDestroySurfaceKHR"},
	{Name: "vkGetPhysicalDeviceSurfaceSupportKHR"},
	{Name: "vkGetPhysicalDeviceSurfaceCapabilitiesKHR"},
	{Name: "vkGetPhysicalDeviceSurfaceFormatsKHR"},
	{Name: "vkGetPhysicalDeviceSurfacePresentModesKHR"},
	{Name: "vkCreateDebugReportCallbackEXT", Optional: true},
	{Name: "vkDestroyDebugReportCallbackEXT", Optional: true},
}

// DeviceSymbols are resolved against a created logical device.
var DeviceSymbols = []Symbol{
	{Name: "vkDestroyDevice"},
	{Name: "vkGetDeviceQueue"},
	{Name: "vkDeviceWaitIdle"},
	{Name: "vkCreateSwapchainKHR"},
	{Name: "vkDestroySwapchainKHR"},
	{Name: "vkGetSwapchainImagesKHR"},
	{Name: "vkAcquireNextImageKHR"},
	{Name: "vkQueuePresentKHR"},
	{Name: "vkCreateImageView"},
	{Name: "vkDestroyImageView"},
	{Name: "vkCreateRenderPass"},
	{Name: "vkDestroyRenderPass"},
	{Name: "vkCreateFramebuffer"},
	{Name: "vkDestroyFramebuffer"},
	{Name: "vkCreateShaderModule"},
	{Name: "vkDestroyShaderModule"},
	{Name: "vkCreatePipelineLayout"},
	{Name: "vkDestroyPipelineLayout"},
	{Name: "vkCreateGraphicsPipelines"},
	{Name: "vkDestroyPipeline"},
	{Name: "vkCreateCommandPool"},
	{Name: "vkDestroyCommandPool"},
	{Name: "vkAllocateCommandBuffers"},
	{Name: "vkFreeCommandBuffers"},
	{Name: "vkBeginCommandBuffer"},
	{Name: "vkEndCommandBuffer"},
	{Name: "vkResetCommandBuffer"},
	{Name: "vkCmdPipelineBarrier"},
	{Name: "vkCmdBeginRenderPass"},
	{Name: "vkCmdBindPipeline"},
	{Name: "vkCmdDraw"},
	{Name: "vkCmdEndRenderPass"},
	{Name: "vkCreateSemaphore"},
	{Name: "vkDestroySemaphore"},
	{Name: "vkCreateFence"},
	{Name: "vkDestroyFence"},
	{Name: "vkWaitForFences"},
	{Name: "vkResetFences"},
	{Name: "vkQueueSubmit"},
	{Name: "vkQueueWaitIdle"},
}
