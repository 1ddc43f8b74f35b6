package email

// GlobalEmailService is the process-wide sender, nil when no API key is
// configured. Callers check for nil and skip the notification; email is
// never on a request's critical path.
var GlobalEmailService *EmailService

func InitEmailService(apiKey string) error {
	service, err := NewEmailService(apiKey)
	if err != nil {
		return err
	}
	GlobalEmailService = service
	return nil
}
