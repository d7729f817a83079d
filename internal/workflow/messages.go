package workflow

import (
	"errors"

	"github.com/kingrea/field-audit/internal/generator"
	"github.com/kingrea/field-audit/internal/store"
)

// ErrInvalidCredentials is returned when no local account or fallback
// identity matches the submitted email.
var ErrInvalidCredentials = errors.New("workflow: invalid credentials")

// User-facing messages.
const (
	msgEmailRequired      = "Ingresa tu correo."
	msgEmailExists        = "El correo ya existe."
	msgInvalidCredentials = "Credenciales no válidas."
	msgRegistered         = "Registro OK. Inicia sesión."
	msgCancelled          = "Proceso cancelado por el usuario."
	msgMissingCredential  = "Clave de API no detectada. Configura GEMINI_API_KEY y vuelve a intentarlo."
	msgReportFailed       = "Error al redactar el informe detallado con anexos. Intenta procesar nuevamente."
	msgPlanFailed         = "Error al generar el plan estratégico con IA."
	msgStorageFailed      = "No se pudo guardar en el almacenamiento local."
	msgImportFailed       = "Error al importar el archivo."
	msgImported           = "Base de datos restaurada con éxito."
	msgNoBackup           = "No hay respaldos disponibles."
	msgBackupFailed       = "No se pudo generar el respaldo."
	msgBackupSaved        = "Respaldo guardado en "
	msgExportFailed       = "No se pudo exportar el informe."
	msgExported           = "Archivo exportado: "
)

func credentialMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrEmailExists):
		return msgEmailExists
	case errors.Is(err, ErrInvalidCredentials):
		return msgInvalidCredentials
	default:
		return msgStorageFailed
	}
}

func generatorMessage(err error, fallback string) string {
	if errors.Is(err, generator.ErrMissingCredential) {
		return msgMissingCredential
	}
	return fallback
}
