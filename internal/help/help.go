// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"archivist/internal/policy"
	"archivist/internal/rules"

	"github.com/fatih/color"
)

// RuleInfo contains standardized information about a rule or disclosure check
type RuleInfo struct {
	Name        string               // Rule name as it appears in reports
	Stage       rules.Stage          // Pipeline stage the rule belongs to
	Summary     string               // One-line description for the rules list
	Condition   string               // When the rule fires
	Effect      string               // What the rule writes
	Keywords    []policy.KeywordList // Keyword tables the rule reads
	Patterns    []policy.PatternList // Pattern tables the rule reads
	LockAware   bool                 // Whether the period lock can suppress the write
	SetsLock    bool                 // Whether the rule sets the period lock
	Description string               // Longer notes, optional
}

var ruleDocs = []RuleInfo{
	{
		Name: rules.RuleBriefing, Stage: rules.StageSupplementary,
		Summary:   "Briefings are kept 10 years; category follows the briefing's subject",
		Condition: "title contains a briefing marker",
		Effect:    "保管期限=10年 and locks the period; 实体分类名称 party, business or general by content",
		Keywords:  []policy.KeywordList{policy.BriefingMarker, policy.BriefingParty, policy.BriefingBusiness},
		SetsLock:  true,
	},
	{
		Name: rules.RuleInternalTraining, Stage: rules.StageSupplementary,
		Summary:   "Internal business training is business category, at least 30 years",
		Condition: "title mentions training, not its management, and the content is not party training",
		Effect:    "实体分类名称=业务类; 保管期限 raised to 30年",
		Keywords:  []policy.KeywordList{policy.Training, policy.TrainingManagement, policy.PartyTraining},
		LockAware: true,
	},
	{
		Name: rules.RuleAddressChange, Stage: rules.StageSupplementary,
		Summary:   "Archive deposit address changes are kept 10 years",
		Condition: "content mentions a deposit address change",
		Effect:    "保管期限=10年",
		Keywords:  []policy.KeywordList{policy.AddressChange},
		LockAware: true,
	},
	{
		Name: rules.RuleMaintenance, Stage: rules.StageSupplementary,
		Summary:   "Installation and repair letters or notices are kept 10 years",
		Condition: "content mentions maintenance and the title is a letter or notice",
		Effect:    "保管期限=10年",
		Keywords:  []policy.KeywordList{policy.Maintenance, policy.InternalDocTypes},
		LockAware: true,
	},
	{
		Name: rules.RuleGenericNotice, Stage: rules.StageSupplementary,
		Summary:   "Routine notices without a file number are kept 10 years",
		Condition: "title is a notice, there is no file number and nothing marks it important",
		Effect:    "保管期限=10年",
		Keywords:  []policy.KeywordList{policy.NoticeMarker, policy.ImportantNotice},
		LockAware: true,
	},
	{
		Name: rules.RuleInternalRegulation, Stage: rules.StageSupplementary,
		Summary:     "Internal regulations are general category, 30 years",
		Condition:   "title names a regulation and the content addresses the organization itself",
		Effect:      "实体分类名称=综合类; 保管期限=30年",
		Keywords:    []policy.KeywordList{policy.Regulation, policy.InternalOrganization},
		LockAware:   true,
		Description: "The category is changed even when the period is locked.",
	},
	{
		Name: rules.RuleCriticismNotice, Stage: rules.StageSupplementary,
		Summary:   "Criticism notices are kept 30 years",
		Condition: "title is a criticism notice",
		Effect:    "保管期限=30年",
		Keywords:  []policy.KeywordList{policy.CriticismNotice},
		LockAware: true,
	},
	{
		Name: rules.RuleBidResult, Stage: rules.StageSupplementary,
		Summary:   "Bid award results are kept 30 years",
		Condition: "title mentions a bid and its result",
		Effect:    "保管期限=30年",
		Keywords:  []policy.KeywordList{policy.BidMarker, policy.BidResult},
		LockAware: true,
	},
	{
		Name: rules.RulePartyBranchAdjustment, Stage: rules.StageSupplementary,
		Summary:     "Requests to adjust a party branch are party category, 30 years",
		Condition:   "content is a request to change party branch members and is not an election result",
		Effect:      "实体分类名称=党群类; 保管期限=30年",
		Keywords:    []policy.KeywordList{policy.PartyBranch, policy.PartyBranchAdjustment, policy.PartyBranchTarget, policy.RequestMarker, policy.ElectionResult},
		LockAware:   true,
		Description: "Election results are never touched; they are retained permanently.",
	},
	{
		Name: rules.RuleBusinessGuard, Stage: rules.StageSupplementary,
		Summary:   "Ordinary documents wrongly filed as business move to general",
		Condition: "category is 业务类, content is not archive or training work and the title is a common document type",
		Effect:    "实体分类名称=综合类",
		Keywords:  []policy.KeywordList{policy.BusinessLegitimate, policy.GeneralDocTypes},
	},
	{
		Name: rules.RuleFileNumberEscalation, Stage: rules.StageSupplementary,
		Summary:   "Documents with a file number are kept at least 30 years",
		Condition: "the record has a file number",
		Effect:    "保管期限 raised to 30年",
		LockAware: true,
	},
	{
		Name: rules.CheckSecurityLevel, Stage: rules.StageDisclosure,
		Summary:   "Classified documents are controlled as work secrets",
		Condition: "密级 is a controlled level",
		Effect:    "开放状态=控制; 延期开放理由=工作秘密",
	},
	{
		Name: rules.CheckPrivacy, Stage: rules.StageDisclosure,
		Summary:   "Personal data is controlled as personal privacy",
		Condition: "title or text contains privacy keywords or an identity number",
		Effect:    "开放状态=控制; 延期开放理由=个人隐私",
		Keywords:  []policy.KeywordList{policy.Privacy},
		Patterns:  []policy.PatternList{policy.PrivacyPatterns},
	},
	{
		Name: rules.CheckCommercial, Stage: rules.StageDisclosure,
		Summary:   "Commercial data is controlled unless the title is a published bid result",
		Condition: "title or text contains commercial keywords and the title is not exempt",
		Effect:    "开放状态=控制; 延期开放理由=商业秘密",
		Keywords:  []policy.KeywordList{policy.Commercial, policy.CommercialExempt},
	},
	{
		Name: rules.CheckNegativeTitle, Stage: rules.StageDisclosure,
		Summary:   "Disciplinary titles are controlled as negative information",
		Condition: "title contains a negative keyword",
		Effect:    "开放状态=控制; 延期开放理由=负面信息",
		Keywords:  []policy.KeywordList{policy.NegativeTitle},
	},
	{
		Name: rules.CheckNegativePattern, Stage: rules.StageDisclosure,
		Summary:   "Disciplinary phrasing in the text is controlled as negative information",
		Condition: "title or text matches a disciplinary pattern",
		Effect:    "开放状态=控制; 延期开放理由=负面信息",
		Patterns:  []policy.PatternList{policy.NegativePatterns},
	},
}

// Rules returns the documented rules in pipeline order.
func Rules() []RuleInfo {
	return append([]RuleInfo(nil), ruleDocs...)
}

// System manages help content for the application
type System struct {
	out     io.Writer
	tables  *policy.Tables
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a new help system writing to out. Keyword listings come
// from tables.
func NewSystem(out io.Writer, tables *policy.Tables, noColor bool) *System {
	if noColor {
		color.NoColor = true
	}
	if tables == nil {
		tables = policy.Default()
	}

	return &System{
		out:     out,
		tables:  tables,
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"negative": color.New(color.FgRed),
			"warning":  color.New(color.FgYellow),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Fprintln(h.out, "Archivist - Archival Metadata Rules Engine")
	fmt.Fprintln(h.out, "==========================================")
	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "USAGE:")
	fmt.Fprintln(h.out, "  archivist -metadata <file> [-text <file>] [options]   # one record")
	fmt.Fprintln(h.out, "  archivist -dir <folder> [-results-dir <folder>] [options]   # batch")
	fmt.Fprintln(h.out, "  archivist -dir <folder> -watch [options]   # reprocess on change")
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "OPTIONS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  -metadata\t<path>\tExtractor response: JSON, fenced JSON or near-JSON text")
	fmt.Fprintln(w, "  -text\t<path>\tRecognized text of the document (.txt, .md or .pdf)")
	fmt.Fprintln(w, "  -dir\t<path>\tFolder of archive folders, each holding metadata.json and page images")
	fmt.Fprintln(w, "  -max-depth\t<n>\tHow deep to look for archive folders (default: 2)")
	fmt.Fprintln(w, "  -results-dir\t<path>\tWrite per-archive result files and batch_summary.json here")
	fmt.Fprintln(w, "  -watch\t\tKeep running and reprocess archives whose files change")
	fmt.Fprintln(w, "  -output\t<path>\tExport file (if not specified, output to stdout)")
	fmt.Fprintln(w, "  -format\t<format>\tExport format: csv, json, table, text, xlsx, yaml (default: text)")
	fmt.Fprintln(w, "  -template\t<name>\tHeader template naming the exported fields (default: default)")
	fmt.Fprintln(w, "  -list-templates\t\tList header templates")
	fmt.Fprintln(w, "  -config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  -profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  -list-profiles\t\tList available profiles")
	fmt.Fprintln(w, "  -policy\t<path>\tYAML file overriding keyword and code tables")
	fmt.Fprintln(w, "  -workers\t<n>\tParallel archives in batch mode (default: CPU count, at most 8)")
	fmt.Fprintln(w, "  -catalog-dsn\t<dsn>\tStore batch results in a SQLite file or PostgreSQL database")
	fmt.Fprintln(w, "  -catalog-driver\t<name>\tCatalog driver: sqlite3 or postgres (default: sqlite3)")
	fmt.Fprintln(w, "  -runs\t\tList batch runs stored in the catalog")
	fmt.Fprintln(w, "  -export-run\t<id>\tExport the records of a stored run")
	fmt.Fprintln(w, "  -metrics-file\t<path>\tWrite batch metrics in Prometheus text format")
	fmt.Fprintln(w, "  -verbose\t\tInclude every rule decision in the output")
	fmt.Fprintln(w, "  -debug\t\tTrace pipeline stages and timings on stderr")
	fmt.Fprintln(w, "  -no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  -quiet\t\tSuppress progress output")
	fmt.Fprintln(w, "  -version\t\tShow version information")
	fmt.Fprintln(w, "  -help\t\tShow this help message")
	fmt.Fprintln(w, "  -help rules\t\tList all rules and disclosure checks")
	fmt.Fprintln(w, "  -help <rule>\t\tShow detailed help for a rule")
	_ = w.Flush()

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "EXAMPLES:")
	h.colors["example"].Fprintln(h.out, "  archivist -metadata response.txt -text ocr.txt -format json")
	h.colors["example"].Fprintln(h.out, "  archivist -dir ./scans -results-dir ./out -format xlsx -output catalog.xlsx")
	h.colors["example"].Fprintln(h.out, "  archivist -dir ./scans -profile review")
	h.colors["example"].Fprintln(h.out, "  archivist -dir ./scans -catalog-dsn archive.db && archivist -runs -catalog-dsn archive.db")

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "CONFIGURATION:")
	fmt.Fprintln(h.out, "  Project config: archivist.yaml or .archivist.yaml (in current directory)")
	fmt.Fprintln(h.out, "  User config: ~/.archivist.yaml or $XDG_CONFIG_HOME/archivist/config.yaml")
	fmt.Fprintln(h.out, "  Environment: ARCHIVIST_* variables, also read from .env.local and .env")
}

// ShowRulesHelp lists every rule and disclosure check in pipeline order
func (h *System) ShowRulesHelp() {
	h.colors["title"].Fprintln(h.out, "Rules")
	fmt.Fprintln(h.out, "=====")
	fmt.Fprintln(h.out)

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	h.colors["header"].Fprintln(w, "  STAGE\tRULE\tDESCRIPTION")
	for _, info := range ruleDocs {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", info.Stage, info.Name, info.Summary)
	}
	_ = w.Flush()

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "Supplementary rules run in the order above. Once the briefing rule locks the")
	fmt.Fprintln(h.out, "retention period, later rules cannot change it. The first matching disclosure")
	fmt.Fprintln(h.out, "check decides the deferral reason.")
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "For detailed information about a specific rule, use:")
	h.colors["example"].Fprintf(h.out, "  archivist -help %s\n", rules.RuleBriefing)
}

// ShowRuleHelp displays detailed help for one rule
func (h *System) ShowRuleHelp(name string) bool {
	info, ok := lookup(name)
	if !ok {
		h.colors["negative"].Fprintf(h.out, "Error: Rule '%s' not found.\n", name)
		fmt.Fprintln(h.out, "Use 'archivist -help rules' to see a list of available rules.")
		return false
	}

	h.colors["title"].Fprintf(h.out, "%s (%s)\n", info.Name, info.Stage)
	fmt.Fprintln(h.out, strings.Repeat("=", len(info.Name)+len(info.Stage)+3))
	fmt.Fprintln(h.out, info.Summary)
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "FIRES WHEN:")
	fmt.Fprintf(h.out, "  %s\n\n", info.Condition)
	h.colors["header"].Fprintln(h.out, "WRITES:")
	fmt.Fprintf(h.out, "  %s\n", info.Effect)
	switch {
	case info.SetsLock:
		h.colors["warning"].Fprintln(h.out, "  Sets the period lock.")
	case info.LockAware:
		fmt.Fprintln(h.out, "  The retention period is left alone when the period is locked.")
	}
	if info.Description != "" {
		fmt.Fprintf(h.out, "  %s\n", info.Description)
	}

	for _, name := range info.Keywords {
		fmt.Fprintln(h.out)
		h.colors["header"].Fprintf(h.out, "KEYWORDS (%s):\n", name)
		fmt.Fprintf(h.out, "  %s\n", strings.Join(h.tables.Keywords(name).Words(), ", "))
	}
	for _, name := range info.Patterns {
		fmt.Fprintln(h.out)
		h.colors["header"].Fprintf(h.out, "PATTERNS (%s): %d\n", name, h.tables.Patterns(name).Len())
	}
	return true
}

func lookup(name string) (RuleInfo, bool) {
	for _, info := range ruleDocs {
		if strings.EqualFold(info.Name, name) {
			return info, true
		}
	}
	return RuleInfo{}, false
}
