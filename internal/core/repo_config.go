package core

// RepoConfig represents the structure of the .rate-my-mr.yaml file.
// Fields missing from the file keep their defaults.
type RepoConfig struct {
	Features   FeatureToggles     `yaml:"features"`
	LOC        LOCSettings        `yaml:"loc"`
	Complexity ComplexitySettings `yaml:"cyclomatic_complexity"`
	Security   SecuritySettings   `yaml:"security"`
	Lint       LintSettings       `yaml:"lint"`
	Rating     RatingSettings     `yaml:"rating"`
	Report     ReportSettings     `yaml:"report"`
}

type FeatureToggles struct {
	AISummary            bool `yaml:"ai_summary"`
	AICodeReview         bool `yaml:"ai_code_review"`
	LOCAnalysis          bool `yaml:"loc_analysis"`
	LintDisableCheck     bool `yaml:"lint_disable_check"`
	CyclomaticComplexity bool `yaml:"cyclomatic_complexity"`
	SecurityScan         bool `yaml:"security_scan"`
}

type LOCSettings struct {
	MaxLines         int `yaml:"max_lines"`
	WarningThreshold int `yaml:"warning_threshold"`
}

type ComplexitySettings struct {
	MaxAverage      int `yaml:"max_average"`
	MaxPerMethod    int `yaml:"max_per_method"`
	ShowTopNMethods int `yaml:"show_top_n_methods"`
}

type SecuritySettings struct {
	FailOnHigh      bool     `yaml:"fail_on_high"`
	FailOnMedium    bool     `yaml:"fail_on_medium"`
	MaxIssuesPerLOC float64  `yaml:"max_issues_per_loc"`
	IgnoredTests    []string `yaml:"ignored_tests"`
	ShowMaxIssues   int      `yaml:"show_max_issues"`
}

type LintSettings struct {
	// AllowedDisables lists rules whose suppression is not counted.
	AllowedDisables []string `yaml:"allowed_disables"`
	MaxNewDisables  int      `yaml:"max_new_disables"`
}

type RatingSettings struct {
	PassScore               int  `yaml:"pass_score"`
	DeductForHighLOC        bool `yaml:"deduct_for_high_loc"`
	DeductForLintDisables   bool `yaml:"deduct_for_lint_disables"`
	DeductForHighCC         bool `yaml:"deduct_for_high_cc"`
	DeductForSecurityIssues bool `yaml:"deduct_for_security_issues"`
}

type ReportSettings struct {
	ShowAIContent       bool `yaml:"show_ai_content"`
	ShowSecurityDetails bool `yaml:"show_security_details"`
	ShowCCBreakdown     bool `yaml:"show_cc_breakdown"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		Features: FeatureToggles{
			AISummary:            true,
			AICodeReview:         true,
			LOCAnalysis:          true,
			LintDisableCheck:     true,
			CyclomaticComplexity: true,
			SecurityScan:         true,
		},
		LOC: LOCSettings{MaxLines: 500, WarningThreshold: 300},
		Complexity: ComplexitySettings{
			MaxAverage:      10,
			MaxPerMethod:    15,
			ShowTopNMethods: 5,
		},
		Security: SecuritySettings{
			FailOnHigh:      true,
			MaxIssuesPerLOC: 0.005,
			IgnoredTests:    []string{},
			ShowMaxIssues:   10,
		},
		Lint: LintSettings{
			AllowedDisables: []string{},
			MaxNewDisables:  10,
		},
		Rating: RatingSettings{
			PassScore:               3,
			DeductForHighLOC:        true,
			DeductForLintDisables:   true,
			DeductForHighCC:         true,
			DeductForSecurityIssues: true,
		},
		Report: ReportSettings{
			ShowAIContent:       true,
			ShowSecurityDetails: true,
			ShowCCBreakdown:     true,
		},
	}
}
