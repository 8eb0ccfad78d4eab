package navigation

import "github.com/trezcool/masomo-dashboard/core/user"

var homeRoutes = map[user.Role]string{
	user.RolePlatformAdmin: "/platform/dashboard",
	user.RoleSchoolAdmin:   "/school-admin/dashboard",
	user.RoleTeacher:       "/teacher/dashboard",
	user.RoleStudent:       "/student/dashboard",
	user.RoleParent:        "/parent/dashboard",
	user.RoleAccountant:    "/accountant/dashboard",
}

var profile = Entry{Title: "Profile", Path: "/profile", Icon: IconProfile}

var menus = map[user.Role][]Entry{
	user.RolePlatformAdmin: {
		{Title: "Dashboard", Path: "/platform/dashboard", Icon: IconDashboard},
		{Title: "Schools", Path: "/platform/schools", Icon: IconSchool},
		{Title: "Users", Path: "/platform/users", Icon: IconUsers},
		{Title: "Subscriptions", Path: "/platform/subscriptions", Icon: IconSubscriptions},
		{Title: "Reports", Path: "/platform/reports", Icon: IconReports},
		{Title: "Settings", Path: "/platform/settings", Icon: IconSettings},
		profile,
	},
	user.RoleSchoolAdmin: {
		{Title: "Dashboard", Path: "/school-admin/dashboard", Icon: IconDashboard},
		{Title: "Students", Path: "/school-admin/students", Icon: IconStudents, Children: []Entry{
			{Title: "All Students", Path: "/school-admin/students/list"},
			{Title: "Admissions", Path: "/school-admin/students/admissions"},
		}},
		{Title: "Teachers", Path: "/school-admin/teachers", Icon: IconTeachers},
		{Title: "Classes", Path: "/school-admin/classes", Icon: IconClasses},
		{Title: "Fees", Path: "/school-admin/fees", Icon: IconFees, Children: []Entry{
			{Title: "Fee Structure", Path: "/school-admin/fees/structure"},
			{Title: "Payments", Path: "/school-admin/fees/payments"},
		}},
		{Title: "Payroll", Path: "/school-admin/payroll", Icon: IconPayroll},
		{Title: "Library", Path: "/school-admin/library", Icon: IconLibrary},
		{Title: "Transport", Path: "/school-admin/transport", Icon: IconTransport},
		{Title: "Users", Path: "/school-admin/users", Icon: IconUsers},
		{Title: "Settings", Path: "/school-admin/settings", Icon: IconSettings},
		profile,
	},
	user.RoleTeacher: {
		{Title: "Dashboard", Path: "/teacher/dashboard", Icon: IconDashboard},
		{Title: "My Classes", Path: "/teacher/classes", Icon: IconClasses},
		{Title: "Attendance", Path: "/teacher/attendance", Icon: IconAttendance},
		{Title: "Assignments", Path: "/teacher/assignments", Icon: IconAssignments},
		{Title: "Grades", Path: "/teacher/grades", Icon: IconGrades},
		{Title: "Timetable", Path: "/teacher/timetable", Icon: IconTimetable},
		profile,
	},
	user.RoleStudent: {
		{Title: "Dashboard", Path: "/student/dashboard", Icon: IconDashboard},
		{Title: "Timetable", Path: "/student/timetable", Icon: IconTimetable},
		{Title: "Assignments", Path: "/student/assignments", Icon: IconAssignments},
		{Title: "Grades", Path: "/student/grades", Icon: IconGrades},
		{Title: "Library", Path: "/student/library", Icon: IconLibrary},
		{Title: "Fees", Path: "/student/fees", Icon: IconFees},
		profile,
	},
	user.RoleParent: {
		{Title: "Dashboard", Path: "/parent/dashboard", Icon: IconDashboard},
		{Title: "My Children", Path: "/parent/children", Icon: IconChildren},
		{Title: "Attendance", Path: "/parent/attendance", Icon: IconAttendance},
		{Title: "Grades", Path: "/parent/grades", Icon: IconGrades},
		{Title: "Fees", Path: "/parent/fees", Icon: IconFees},
		{Title: "Transport", Path: "/parent/transport", Icon: IconTransport},
		profile,
	},
	user.RoleAccountant: {
		{Title: "Dashboard", Path: "/accountant/dashboard", Icon: IconDashboard},
		{Title: "Fees", Path: "/accountant/fees", Icon: IconFees, Children: []Entry{
			{Title: "Fee Structure", Path: "/accountant/fees/structure"},
			{Title: "Payments", Path: "/accountant/fees/payments"},
			{Title: "Invoices", Path: "/accountant/fees/invoices"},
		}},
		{Title: "Payroll", Path: "/accountant/payroll", Icon: IconPayroll},
		{Title: "Expenses", Path: "/accountant/expenses", Icon: IconExpenses},
		{Title: "Reports", Path: "/accountant/reports", Icon: IconReports},
		profile,
	},
}
