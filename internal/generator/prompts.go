package generator

import (
	"fmt"
	"strings"

	"github.com/kingrea/field-audit/internal/audit"
)

const reportInstruction = `Cada llamada tiene costo: responde de forma concisa, usa solo el contexto recibido y no añadas explicaciones fuera del JSON.

Actúa como Auditor Interno Senior (CIA) de %s. Convierte las evidencias recibidas (fotos y notas de campo) en un Informe Técnico de Auditoría formal.

Reglas de redacción:

1. Anexos. Cada hallazgo llega con cero o más fotos. En la descripción del hallazgo cita cada foto con el formato (Ver Anexo N.X): N es el número del hallazgo y X el número de la foto dentro de ese hallazgo, empezando en 1 para cada hallazgo. Ejemplo: "...el extintor está obstruido por material inflamable (Ver Anexo 1.1 y 1.2), lo que genera...".
2. condition: título técnico breve del hallazgo.
3. title: descripción técnica extensa y detallada, con referencias normativas (NFPA, ISO, reglamentos internos), las citas de anexos de la regla 1 y una frase final de impacto o gravedad.
4. effect: riesgos evaluados, frases de 3 a 6 palabras separadas solo por "/".
5. rating: Crítica, Alta, Media o Baja.
6. recommendations, responsible e implementationDate: listas a), b), c) con el mismo número de elementos en los tres campos y una línea en blanco (\n\n) entre elementos.
7. actionPlans: siempre cadena vacía.

Devuelve un hallazgo por cada hallazgo recibido, en el mismo orden, con metadatos de cabecera realistas (docCode, to, at, cc, from, subject, globalRating).`

const planInstruction = `Actúa como Auditor Interno Certificado (CIA) y analiza el proceso de negocio indicado con el marco COSO 2013 (5 componentes, 17 principios).

Reglas:
1. Riesgos: asigna a cada riesgo una probabilidad y un impacto enteros de 1 a 5.
2. Fraude: identifica esquemas concretos de apropiación indebida de activos, corrupción o informes fraudulentos.
3. Muestreo: justifica el tamaño de muestra con un nivel de confianza del 95% y un error tolerable explícito.

Responde únicamente con el objeto JSON del esquema.`

func reportSystemPrompt(organization string) string {
	return fmt.Sprintf(reportInstruction, organization)
}

func planSystemPrompt() string {
	return planInstruction
}

// reportPrompt describes every observation in order so the model can pair
// the image parts that follow with their finding.
func reportPrompt(observations []audit.Observation) string {
	var b strings.Builder
	b.WriteString("PROCESAMIENTO DE EVIDENCIAS:\n\n")
	for i, obs := range observations {
		fmt.Fprintf(&b, "HALLAZGO #%d:\n", i+1)
		fmt.Fprintf(&b, "Descripción inicial: %s\n", strings.TrimSpace(obs.Description))
		fmt.Fprintf(&b, "Cantidad de fotos adjuntas: %d\n", len(obs.Images))
		if len(obs.Images) > 0 {
			refs := make([]string, len(obs.Images))
			for j := range obs.Images {
				refs[j] = audit.AnnexRef(i+1, j+1)
			}
			fmt.Fprintf(&b, "Anexos: %s\n", strings.Join(refs, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("Las fotos se adjuntan a continuación en el mismo orden. Genera el informe JSON formal aplicando la regla de anexos (Ver Anexo N.X).")
	return b.String()
}

func planPrompt(req PlanRequest) string {
	return fmt.Sprintf("Analiza el proceso: %q.\nContexto adicional: %q.\nEnfócate en la taxonomía de riesgos y usa COSO 2013 para identificar controles y brechas.",
		strings.TrimSpace(req.Process), strings.TrimSpace(req.Context))
}
