package core

import (
	"errors"
)

// Failure classes of a render invocation. Callers classify wrapped errors with errors.Is.
var (
	// ErrAllocation is returned when no device memory type satisfies a resource.
	ErrAllocation = errors.New("no compatible memory type")
	// ErrResourceCreation covers image, buffer, view, sampler and descriptor creation failures.
	ErrResourceCreation = errors.New("resource creation failed")
	// ErrShaderModule is returned for malformed or incompatible shader bytecode.
	ErrShaderModule = errors.New("shader module creation failed")
	// ErrPipelineCreation is returned when the driver rejects a pipeline description.
	ErrPipelineCreation = errors.New("pipeline creation failed")
	// ErrSubmission covers queue submit and wait failures.
	ErrSubmission = errors.New("queue submission failed")
	// ErrMapping is returned when host memory mapping fails.
	ErrMapping = errors.New("memory mapping failed")

	ErrInvalidDimensions = errors.New("invalid render dimensions")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNoDevice          = errors.New("no suitable vulkan device")
	ErrLayoutOrder       = errors.New("image layout transition out of order")
)
