package actions

// FailureKind classifies a failed Result for callers and metrics. The
// user-facing message travels separately in the result's Error field.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureValidation    FailureKind = "validation"
	FailureAuthorization FailureKind = "authorization"
	FailureStore         FailureKind = "store"
	FailureNotFound      FailureKind = "not_found"
)

// User-facing messages, localized for the deployment's audience. Store
// errors are never exposed verbatim; callers get the generic message.
const (
	msgUnauthorized        = "Clínica incompatível ou não autorizado para esta operação."
	msgMissingClinic       = "Clínica não encontrada ou não autorizado."
	msgInvalidID           = "Identificador inválido."
	msgInvalidDate         = "Formato de data inválido (YYYY-MM-DD)."
	msgInvalidTime         = "Formato de horário inválido (HH:mm)."
	msgOffGridTime         = "Horário fora da grade de agendamento."
	msgDoctorNotFound      = "Médico não encontrado."
	msgDayNotManageable    = "O dia não está disponível para gerenciamento de horários."
	msgDayFailure          = "Falha ao operar a data."
	msgAvailabilityFailure = "Falha ao operar a disponibilidade."
	msgSlotFailure         = "Falha ao operar o horário."
)
