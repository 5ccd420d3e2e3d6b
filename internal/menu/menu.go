package menu

import (
    "bufio"
    "context"
    "fmt"
    "io"
    "os"
    "runtime"
    "strconv"
    "strings"

    "github.com/local/scansort/internal/config"
    "github.com/local/scansort/internal/orchestrator"
)

// BuildRunner rebuilds the runner after the configuration changed. cmd/app
// supplies it so the menu never constructs engines itself.
type BuildRunner func(s config.Settings) *orchestrator.Runner

// Menu is the interactive terminal frontend. The strings follow the
// original scan-station tool, which its operators know by heart.
type Menu struct {
    in           *bufio.Reader
    out          io.Writer
    settings     config.Settings
    settingsPath string
    build        BuildRunner
    runner       *orchestrator.Runner
}

func New(settings config.Settings, settingsPath string, build BuildRunner) *Menu {
    return &Menu{
        in:           bufio.NewReader(os.Stdin),
        out:          os.Stdout,
        settings:     settings,
        settingsPath: settingsPath,
        build:        build,
        runner:       build(settings),
    }
}

// Run loops until the operator exits or the context ends.
func (m *Menu) Run(ctx context.Context) error {
    for {
        if ctx.Err() != nil { return ctx.Err() }
        m.printMenu()
        choice, err := m.readLine("Vnesi izbiro (0-7): ")
        if err != nil { return err }

        switch choice {
        case "1":
            m.runText(ctx)
        case "2":
            m.runExport(ctx)
        case "3":
            m.runSingle(ctx)
        case "4":
            m.showConfig()
        case "5":
            m.changeFolder()
        case "6":
            m.configure()
        case "7":
            m.runGroup(ctx)
        case "0":
            fmt.Fprintln(m.out, "Zapri")
            return nil
        default:
            fmt.Fprintln(m.out, "Neveljavno")
        }

        fmt.Fprint(m.out, "\nPritisni Enter za nadaljevanje...")
        if _, err := m.in.ReadString('\n'); err != nil { return err }
    }
}

func (m *Menu) printMenu() {
    fmt.Fprintln(m.out)
    fmt.Fprintln(m.out, "SCANSORT PROCESSOR v1.0")
    fmt.Fprintln(m.out, strings.Repeat("=", 50))
    fmt.Fprintln(m.out, "1. Procesiraj vse datoteke (tekst OCR)")
    fmt.Fprintln(m.out, "2. Shrani slike kot searchable PDF (posamezne datoteke)")
    fmt.Fprintln(m.out, "3. Testiraj eno datoteko")
    fmt.Fprintln(m.out, "4. Prikaži konfiguracijo")
    fmt.Fprintln(m.out, "5. Spremeni mapo datotek")
    fmt.Fprintln(m.out, "6. Konfiguriraj (vse nastavitve)")
    fmt.Fprintln(m.out, "7. Samodejno združi strani v dokumente (prstni odtis)")
    fmt.Fprintln(m.out, "0. Izhod")
    fmt.Fprintln(m.out, strings.Repeat("=", 50))
}

func (m *Menu) readLine(prompt string) (string, error) {
    fmt.Fprint(m.out, prompt)
    line, err := m.in.ReadString('\n')
    if err != nil { return "", err }
    return strings.TrimSpace(line), nil
}

// needFolder guards the batch actions; the original message names the
// configuration option.
func (m *Menu) needFolder() bool {
    if m.settings.ScanFolder == "" {
        fmt.Fprintln(m.out, "Najprej nastavi mapo za skeniranje (opcija 6).")
        return false
    }
    return true
}

func (m *Menu) runText(ctx context.Context) {
    if !m.needFolder() { return }
    rep, _, err := m.runner.RunText(ctx, m.settings.ScanFolder)
    if err != nil {
        fmt.Fprintf(m.out, "Napaka: %v\n", err)
        return
    }
    fmt.Fprintf(m.out, "Opravljen OCR za %d datotek (%d napak).\n", rep.Succeeded, rep.Failed)
}

func (m *Menu) runExport(ctx context.Context) {
    if !m.needFolder() { return }
    out, err := m.readLine("Izhodni .pdf (npr. ocr_export.pdf): ")
    if err != nil { return }
    result, err := m.runner.RunExport(ctx, m.settings.ScanFolder, out)
    if err != nil {
        fmt.Fprintf(m.out, "Napaka pri izvozu: %v\n", err)
        return
    }
    fmt.Fprintf(m.out, "Ustvarjeno: %s\n", result)
}

func (m *Menu) runSingle(ctx context.Context) {
    path, err := m.readLine("Vnesi pot do slike: ")
    if err != nil { return }
    if _, serr := os.Stat(path); serr != nil {
        fmt.Fprintln(m.out, "Datoteka ne obstaja.")
        return
    }
    text, err := m.runner.RunSingle(ctx, path)
    if err != nil {
        fmt.Fprintf(m.out, "Napaka: %v\n", err)
        return
    }
    fmt.Fprintln(m.out, "\n=== REZULTAT OCR ===")
    fmt.Fprintln(m.out, text)
    fmt.Fprintln(m.out, "====================")
}

func (m *Menu) runGroup(ctx context.Context) {
    if !m.needFolder() { return }
    rep, _, err := m.runner.RunGroup(ctx, m.settings.ScanFolder)
    if err != nil {
        fmt.Fprintf(m.out, "Napaka: %v\n", err)
        return
    }
    fmt.Fprintf(m.out, "Združenih %d strani v %d dokumentov (%d napak).\n",
        rep.Succeeded, len(rep.Documents), rep.Failed)
}

func (m *Menu) showConfig() {
    fmt.Fprintf(m.out, "CPU jeder: %d\n", runtime.NumCPU())
    fmt.Fprintf(m.out, "Priporočeno procesov: %d\n", config.DefaultWorkers())
    fmt.Fprintf(m.out, "Tesseract pot: %s\n", orDefault(m.settings.TesseractPath, "[samodejno]"))
    fmt.Fprintf(m.out, "Trenutna mapa: %s\n", orDefault(m.settings.ScanFolder, "[ni nastavljena]"))
    fmt.Fprintf(m.out, "Jezik OCR: %s\n", m.settings.OCRLang)
    fmt.Fprintf(m.out, "Dodatni args: %s\n", strings.Join(m.settings.ExtraArgs, ","))
    fmt.Fprintf(m.out, "Število procesov: %d\n", m.settings.MaxWorkers)
}

func (m *Menu) changeFolder() {
    folder, err := m.readLine("Vnesi novo pot do mape: ")
    if err != nil { return }
    if info, serr := os.Stat(folder); serr != nil || !info.IsDir() {
        fmt.Fprintln(m.out, "Mapa ne obstaja!")
        return
    }
    m.settings.ScanFolder = folder
    m.saveAndRebuild()
    fmt.Fprintln(m.out, "Mapa uspešno nastavljena!")
}

// configure walks every persisted setting, empty input keeps the current
// value, then saves and rebuilds the runner.
func (m *Menu) configure() {
    fmt.Fprintln(m.out, "\n--- Konfiguriraj ---")

    path, err := m.readLine(fmt.Sprintf("Pot do Tesseract [%s]: ", orDefault(m.settings.TesseractPath, "ni nastavljeno")))
    if err != nil { return }
    if path != "" {
        if _, serr := os.Stat(path); serr == nil {
            m.settings.TesseractPath = path
        } else {
            fmt.Fprintln(m.out, "Datoteka ne obstaja, obdrži prejšnjo vrednost.")
        }
    }

    m.settings.MaxWorkers = m.promptInt("Število procesov", m.settings.MaxWorkers, 1, runtime.NumCPU())

    lang, err := m.readLine(fmt.Sprintf("Jezik Tesseract (npr. 'eng' ali 'slv+eng') [%s]: ", m.settings.OCRLang))
    if err != nil { return }
    if lang != "" { m.settings.OCRLang = lang }

    folder, err := m.readLine(fmt.Sprintf("Mapa za skeniranje [%s]: ", orDefault(m.settings.ScanFolder, "ni nastavljena")))
    if err != nil { return }
    if folder != "" {
        if info, serr := os.Stat(folder); serr == nil && info.IsDir() {
            m.settings.ScanFolder = folder
        } else {
            fmt.Fprintln(m.out, "Mapa ne obstaja, obdrži prejšnjo vrednost.")
        }
    }

    extra, err := m.readLine(fmt.Sprintf("Dodatni argumenti (ločeni z vejico) [%s]: ", strings.Join(m.settings.ExtraArgs, ",")))
    if err != nil { return }
    if extra != "" {
        m.settings.ExtraArgs = splitArgs(extra)
    }

    m.saveAndRebuild()
}

func (m *Menu) promptInt(prompt string, def, min, max int) int {
    for {
        line, err := m.readLine(fmt.Sprintf("%s [%d]: ", prompt, def))
        if err != nil || line == "" { return def }
        v, cerr := strconv.Atoi(line)
        if cerr != nil || v < min || v > max {
            fmt.Fprintf(m.out, "Vnesi število med %d in %d.\n", min, max)
            continue
        }
        return v
    }
}

func (m *Menu) saveAndRebuild() {
    if err := m.settings.Save(m.settingsPath); err != nil {
        fmt.Fprintf(m.out, "Napaka pri shranjevanju: %v\n", err)
    }
    m.runner = m.build(m.settings)
}

// splitArgs parses the comma-separated extra argument list, dropping blanks
// and duplicates.
func splitArgs(s string) []string {
    seen := map[string]bool{}
    var out []string
    for _, part := range strings.Split(s, ",") {
        part = strings.TrimSpace(part)
        if part == "" || seen[part] { continue }
        seen[part] = true
        out = append(out, part)
    }
    return out
}

func orDefault(v, def string) string {
    if v == "" { return def }
    return v
}
