package inspect

// InspectorBuilderOption is a functional option for configuring an Inspector.
type InspectorBuilderOption func(*inspector)

// WithLabels attaches declared names to handles in every snapshot.
//
// Parameters:
//   - l: the handle labels
//
// Returns:
//   - InspectorBuilderOption: option function to apply
func WithLabels(l Labels) InspectorBuilderOption {
	return func(i *inspector) {
		i.labels = l
	}
}
