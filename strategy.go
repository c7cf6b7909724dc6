package callmon

// AuditStrategy decides what business data and tags a settled call
// contributes to the audit trail. Nil funcs mean empty maps, and a data
// func returning an empty map suppresses audit emission for that outcome
// entirely. Tag funcs only matter when the matching data func produces
// something; their output is merged over the request-derived baseline tags.
type AuditStrategy[T any] struct {
	DataOnSuccess func(value T) map[string]string
	TagsOnSuccess func(value T) map[string]string
	DataOnFailure func(err error) map[string]string
	TagsOnFailure func(err error) map[string]string
}

// NoAudit returns the default strategy: audit nothing.
func NoAudit[T any]() AuditStrategy[T] {
	return AuditStrategy[T]{}
}

func (s AuditStrategy[T]) successData(value T) map[string]string {
	if s.DataOnSuccess == nil {
		return nil
	}
	return s.DataOnSuccess(value)
}

func (s AuditStrategy[T]) successTags(value T) map[string]string {
	if s.TagsOnSuccess == nil {
		return nil
	}
	return s.TagsOnSuccess(value)
}

func (s AuditStrategy[T]) failureData(err error) map[string]string {
	if s.DataOnFailure == nil {
		return nil
	}
	return s.DataOnFailure(err)
}

func (s AuditStrategy[T]) failureTags(err error) map[string]string {
	if s.TagsOnFailure == nil {
		return nil
	}
	return s.TagsOnFailure(err)
}
