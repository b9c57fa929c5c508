// Package log holds the attribute keys shared by structured log statements
// and trace spans.
package log

const (
	TaskIDKey            = "task_id"
	TaskDefinitionKeyKey = "task_definition_key"
	ActivityIDKey        = "activity_id"
	DefinitionIDKey      = "process_definition_id"
	InstanceIDKey        = "process_instance_id"
	ExecutionIDKey       = "execution_id"
	UserIDKey            = "user_id"
	BusinessKeyKey       = "business_key"
)
