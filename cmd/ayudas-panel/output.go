package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/noah-isme/ayudas-panel/internal/dto"
	"github.com/noah-isme/ayudas-panel/internal/models"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatMaybeTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printSession(snap models.SessionSnapshot) {
	rows := [][2]string{{"state", string(snap.State)}}
	if snap.User != nil {
		rows = append(rows,
			[2]string{"usuario", snap.User.Username},
			[2]string{"nombre", snap.User.Nombre},
			[2]string{"rol", string(snap.User.Rol)},
		)
	}
	rows = append(rows, [2]string{"token_expira", formatMaybeTime(snap.AccessExpires)})
	printKV(rows)
}

func printRecords(items []models.AidRecord) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.Codigo,
			item.Nacionalidad + "-" + item.Cedula,
			item.Nombre,
			orDash(item.TipoAyuda),
			orDash(item.Estructura),
			string(item.Estatus),
			orDash(item.FechaRegistro),
		})
	}
	printTable([]string{"CODIGO", "CEDULA", "NOMBRE", "TIPO", "ESTRUCTURA", "ESTATUS", "REGISTRO"}, rows)
}

func printPagination(p models.Pagination) {
	window := make([]string, 0, len(p.Window))
	for _, n := range p.Window {
		if n == 0 {
			window = append(window, "...")
			continue
		}
		if n == p.Page {
			window = append(window, "["+strconv.Itoa(n)+"]")
			continue
		}
		window = append(window, strconv.Itoa(n))
	}
	fmt.Printf("\npage %d/%d, %d records  %s\n", p.Page, p.TotalPages, p.TotalCount, strings.Join(window, " "))
}

func printSummary(s dto.ReportSummary) {
	fmt.Printf("total: %d\n", s.Total)
	sections := []struct {
		title   string
		entries []dto.CountEntry
	}{
		{"ESTATUS", s.ByStatus},
		{"TIPO DE AYUDA", s.ByAidType},
		{"INSTITUCION", s.ByInstitution},
		{"PARROQUIA", s.ByParish},
		{"ESTRUCTURA", s.ByStructure},
		{"SEXO", s.BySex},
	}
	for _, section := range sections {
		fmt.Println()
		rows := make([][]string, 0, len(section.entries))
		for _, e := range section.entries {
			rows = append(rows, []string{e.Label, strconv.Itoa(e.Count)})
		}
		printTable([]string{section.title, "TOTAL"}, rows)
	}
}
