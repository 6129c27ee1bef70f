package core

type ErrorNotFound struct {
}

func (e ErrorNotFound) Error() string {
	return "Not Found"
}

func NewErrorNotFound() ErrorNotFound {
	return ErrorNotFound{}
}

type ErrorAlreadyExists struct {
}

func (e ErrorAlreadyExists) Error() string {
	return "Already Exists"
}

func NewErrorAlreadyExists() ErrorAlreadyExists {
	return ErrorAlreadyExists{}
}

type ErrorPermissionDenied struct {
}

func (e ErrorPermissionDenied) Error() string {
	return "Permission Denied"
}

func NewErrorPermissionDenied() ErrorPermissionDenied {
	return ErrorPermissionDenied{}
}

type ErrorRelationshipDenied struct {
	Reason string
}

func (e ErrorRelationshipDenied) Error() string {
	return "Relationship Denied: " + e.Reason
}

func NewErrorRelationshipDenied(reason string) ErrorRelationshipDenied {
	return ErrorRelationshipDenied{Reason: reason}
}

type ErrorPolicyRejected struct {
	PolicyID string
	Reason   string
}

func (e ErrorPolicyRejected) Error() string {
	return "Policy Rejected: " + e.Reason
}

func NewErrorPolicyRejected(policyID, reason string) ErrorPolicyRejected {
	return ErrorPolicyRejected{PolicyID: policyID, Reason: reason}
}

type ErrorPayloadTooLarge struct {
}

func (e ErrorPayloadTooLarge) Error() string {
	return "Payload Too Large"
}

func NewErrorPayloadTooLarge() ErrorPayloadTooLarge {
	return ErrorPayloadTooLarge{}
}

type ErrorInvalidCallbackTarget struct {
	Reason string
}

func (e ErrorInvalidCallbackTarget) Error() string {
	return "Invalid Callback Target: " + e.Reason
}

func NewErrorInvalidCallbackTarget(reason string) ErrorInvalidCallbackTarget {
	return ErrorInvalidCallbackTarget{Reason: reason}
}
