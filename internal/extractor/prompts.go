package extractor

import (
	"fmt"
	"time"
)

// The prompts are written in Spanish on purpose: the inference rules match
// the phrasing of Spanish-language clinical interviews, and the schema keys
// are quoted literally so the output grammar is fully specified in one place.

// schemaContract is the field-by-field output grammar. It is embedded in the
// initial prompt AND restated whole in every correction prompt. Models drop
// constraints when given abbreviated reminders, so the contract always
// travels complete.
const schemaContract = `**Estructura Raíz del JSON:** el objeto debe tener exactamente dos claves en el nivel superior:
* "people": una lista de objetos persona/evento.
* "relationships": una lista de objetos vínculo.

**Estructura del Objeto Persona ("people"):** cada objeto debe tener exactamente las siguientes claves:
* "id": (String) identificador único y descriptivo (ej: "p1_juan", "a1_aborto_maria"). NO uses solo números. Debe ser único dentro de la lista "people".
* "name": (String) nombre completo o etiqueta clara (ej: "Juan Pérez (Paciente)").
* "gender": (String | null) "M" o "F". Usa null si el sexo es desconocido (ej: aborto temprano).
* "generation": (Number) número de generación relativo al paciente (1 abuelos, 2 padres y tíos, 3 el paciente, sus hermanos y primos, 4 hijos y sobrinos, 5 nietos). Usa la misma convención en todo el resultado.
* "birthDate": (String | null) fecha "YYYY-MM-DD". Calcula un año aproximado si solo se da la edad (asume el año actual %d). Si no hay información, null.
* "age": (Number | null) la edad NUMÉRICA mencionada explícitamente (si dice "53 años", el valor debe ser 53). Usa null si no se menciona.
* "deathDate": (String | null) fecha de fallecimiento "YYYY-MM-DD". Solo presente si la persona falleció; null en caso contrario.
* "role": (String) rol relativo al paciente (ej: "paciente", "padre", "tia_materna", "aborto_materno"). Sé lo más específico posible.
* "notes": (String) observaciones extraídas directamente de la transcripción. No repitas la edad aquí. Usa "" si no hay notas.
* "displayGroup": (String | null) identificador de grupo para posicionamiento visual de parejas. El mismo valor para ambos miembros de una pareja; null si no aplica.
* "attributes": (Object) con TODAS estas claves presentes:
    * "isPatient": (Boolean) true solo para el paciente principal, false para el resto. Debe haber exactamente una persona con true.
    * "isDeceased": (Boolean) true si falleció.
    * "isPregnancy": (Boolean) true si el nodo representa un embarazo.
    * "isAbortion": (Boolean) true si representa una pérdida gestacional.
    * "isAdopted": (Boolean) true si es adoptado.
    * "abortionType": (String | null) obligatorio cuando "isAbortion" es true. Valores permitidos: "spontaneous", "induced", "stillbirth", "unknown". Usa null cuando "isAbortion" es false.
    * "gestationalAge": (Number | null) semanas de gestación al momento de la pérdida, si se mencionan (ej: 8, 24). Null si no se especifica.

**Estructura del Objeto Relación ("relationships"):** cada objeto debe tener exactamente las siguientes claves:
* "id": (String) identificador único y descriptivo (ej: "r1_padres_paciente"). Único dentro de la lista "relationships".
* "source": (String) el "id" de la persona origen. IMPORTANTE: para "parentChild" DEBE ser el id del HIJO/A. Para "conyugal", uno de los miembros. Debe existir en "people".
* "target": (String) el "id" de la persona destino. IMPORTANTE: para "parentChild" DEBE ser el id del PADRE o MADRE. Debe existir en "people".
* "type": (String) valores permitidos: "parentChild", "conyugal" (TODAS las relaciones de pareja), "hermanos", "mellizos". NO uses otros tipos.
* "legalStatus": (String | null) obligatorio para "conyugal". Valores permitidos: "matrimonio", "divorcio", "separacion", "cohabitacion", "compromiso". Null si el tipo no es "conyugal" o no se especifica.
* "emotionalBond": (String | null) calidad del vínculo si se menciona. Valores permitidos: "conflicto", "cercana", "distante", "violencia", "rota". Null si no hay información.
* "startDate": (String | null) fecha de inicio "YYYY-MM-DD" o null.
* "endDate": (String | null) fecha de fin "YYYY-MM-DD" (separación, divorcio) o null.
* "notes": (String) notas sobre la relación tomadas de la transcripción, "" si no hay.`

const inferenceRules = `####################  REGLAS DE INFERENCIA DE VÍNCULOS  ####################
Si detectas en la transcripción:

1. Frases de hostilidad, discusiones, "no nos hablamos", "en malos términos" → asigna "emotionalBond": "conflicto"
2. Agresiones físicas o verbales, amenazas, "me pegó", "maltrato", "violencia" → asigna "emotionalBond": "violencia"
3. Frialdad afectiva o poca interacción, "somos distantes", "casi no hablamos" → asigna "emotionalBond": "distante"
4. Expresiones como "vivo con…", "convivimos", "compartimos casa" respecto de una pareja → crea la relación con "type": "conyugal" y "legalStatus": "cohabitacion"

Si varias reglas coinciden, prevalece la gravedad: violencia > conflicto > distante.

####################  REGLAS DE PÉRDIDAS GESTACIONALES  ####################
Cuando detectes menciones de pérdidas de embarazos:

1. Pérdida natural ("aborto espontáneo", "se le vino", "lo perdió sin querer", "fue espontáneo") → "abortionType": "spontaneous", "isAbortion": true, "isPregnancy": true, "isDeceased": true
2. Interrupción voluntaria ("aborto inducido", "decidió no tenerlo") → "abortionType": "induced", "isAbortion": true, "isPregnancy": true, "isDeceased": true
3. Mortinato ("nació muerto", "muerte intrauterina", "después de la semana 20") → "abortionType": "stillbirth", "isAbortion": true, "isPregnancy": true, "isDeceased": true
4. Si se menciona un aborto sin especificar el tipo → "abortionType": "unknown"
5. Si se especifica el sexo del feto → "gender" "M" o "F"; si no, null.
6. Si se menciona el tiempo de gestación ("estaba de 8 semanas", "a los 5 meses") → calcula y asigna el valor numérico en semanas a "gestationalAge".

Para cada pérdida: crea un nodo propio, establece la relación "parentChild" con el o los progenitores, y usa un "id" y un "name" descriptivos (ej: "a1_aborto_maria", "Aborto espontáneo de María").

####################  REGLAS DE AGRUPACIÓN DE PAREJAS  ####################
Para cada relación conyugal, asigna a AMBOS miembros el mismo valor de "displayGroup" (ej: "pareja_juan_maria", "p1") para que se visualicen juntos. Para parejas separadas que deban verse separadas, no les asignes el mismo "displayGroup" (o usa null).`

const outputConstraint = `**Formato de Salida Exclusivo:** tu respuesta DEBE ser únicamente un objeto JSON válido. Sin saludos, sin explicaciones, sin markdown (nada de backticks). La respuesta debe empezar directamente con { y terminar con }.`

const initialPromptTemplate = `Eres un asistente experto en psicología familiar. Convierte la siguiente transcripción de una entrevista clínica en un esquema JSON estructurado y válido para un genograma. Sigue rigurosamente TODAS las instrucciones y sé EXHAUSTIVO: identifica a todas las personas mencionadas y todas las relaciones familiares implícitas o explícitas.

%s

%s

%s

Asegúrate de que todos los "id" referenciados en "relationships" ("source", "target") existan en la lista "people", y de establecer las relaciones "parentChild" entre cada tío/tía del paciente y sus respectivos padres (los abuelos).

**Transcripción de la Entrevista:**
---
%s
---

Genera ahora únicamente el objeto JSON válido, completo y exhaustivo.`

const correctionPromptTemplate = `Tu tarea anterior era generar un JSON para un genograma a partir de una transcripción, pero la respuesta que proporcionaste contenía errores y no pudo ser procesada.

**Error detectado:**
%s

**Respuesta inválida que generaste (puede estar incompleta o malformada):**
---
%s
---

**Instrucciones para la corrección:**

1. Analiza el error y compáralo con tu respuesta inválida: identifica dónde fallaste (sintaxis JSON, claves faltantes, tipos de dato erróneos, referencias a ids inexistentes, texto fuera del JSON).
2. Cumple el contrato completo que se repite a continuación:

%s

%s

3. Reescribe el JSON completo desde cero si es necesario, basándote en la transcripción original.

**Transcripción Original (para referencia):**
---
%s
---

Ahora proporciona únicamente el objeto JSON corregido, completo y válido.`

// InitialPrompt builds the first-attempt extraction prompt: role framing,
// inference rules, the full schema contract, the output constraint and the
// transcript verbatim. Pure string construction; the transcript is never
// truncated.
func InitialPrompt(transcript string) string {
	schema := fmt.Sprintf(schemaContract, time.Now().Year())
	return fmt.Sprintf(initialPromptTemplate, inferenceRules, schema, outputConstraint, transcript)
}

// CorrectionPrompt builds the retry prompt from the validator's error, the
// previous invalid response (quoted verbatim) and the original transcript.
// The schema contract is restated in full, not summarized.
func CorrectionPrompt(errMsg, invalidResponse, transcript string) string {
	schema := fmt.Sprintf(schemaContract, time.Now().Year())
	return fmt.Sprintf(correctionPromptTemplate, errMsg, invalidResponse, schema, outputConstraint, transcript)
}
